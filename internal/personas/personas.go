// Package personas maps Telegram accounts to the virtual identities
// ("皮套") they present in the community.
package personas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
)

// Entry binds an account, by id or username, to a display name.
type Entry struct {
	UserID      int64  `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Directory is the content of the virtual users file.
type Directory struct {
	Users    []Entry  `json:"virtual_users"`
	Keywords []string `json:"keywords"` // Usernames containing one of these are virtual too
}

// Default is used when no file is configured or present.
func Default() *Directory {
	return &Directory{Keywords: []string{"皮套", "vtuber", "虚拟"}}
}

// Load reads the directory at path. A missing file yields Default.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Personas] %s not found, using default keywords", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read virtual users file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a directory from JSON.
func Parse(data []byte) (*Directory, error) {
	var d Directory
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid virtual users file: %w", err)
	}
	return &d, nil
}

// Lookup returns the virtual identity of an account. Entries matching the
// id win over entries matching the username, which win over keywords.
func (d *Directory) Lookup(userID int64, username string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, e := range d.Users {
		if e.UserID != 0 && e.UserID == userID {
			return nameOf(e, username), true
		}
	}
	if username == "" {
		return "", false
	}
	for _, e := range d.Users {
		if e.Username != "" && strings.EqualFold(e.Username, username) {
			return nameOf(e, username), true
		}
	}
	lower := strings.ToLower(username)
	for _, kw := range d.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return username, true
		}
	}
	return "", false
}

func nameOf(e Entry, username string) string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if username != "" {
		return username
	}
	return e.Username
}
