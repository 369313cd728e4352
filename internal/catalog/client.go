// Package catalog talks to the MoviePilot-compatible title catalog: it keeps
// a bearer credential, searches titles and subscribes to them.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"feedback-bot/internal/metrics"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrAuthFailed means no credential could be acquired.
	ErrAuthFailed = errors.New("catalog authentication failed")
	// ErrCatalogUnavailable means the catalog could not be reached or answered
	// with an unexpected status.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

const (
	loginPath     = "/api/v1/login/access-token"
	searchPath    = "/api/v1/media/search"
	subscribePath = "/api/v1/subscribe/"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	OTP      string
	Timeout  time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

type credential struct {
	token      string
	acquiredAt time.Time
}

// Client is safe for concurrent use. The credential slot is either empty,
// holds a token, or is being refilled by exactly one in-flight login that
// every concurrent caller waits for.
type Client struct {
	cfg        Config
	httpClient *http.Client
	slot       atomic.Pointer[credential]
	logins     singleflight.Group
}

// NewClient creates a catalog client. No request is made until first use.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Configured reports whether a catalog URL was provided.
func (c *Client) Configured() bool {
	return c.cfg.BaseURL != ""
}

// currentCredential returns the cached credential or logs in. Concurrent callers
// share one login. The login is not tied to any single caller's ctx: a caller
// that gives up stops waiting, the others still get the credential.
func (c *Client) currentCredential(ctx context.Context) (*credential, error) {
	if cred := c.slot.Load(); cred != nil {
		return cred, nil
	}
	results := c.logins.DoChan("login", func() (interface{}, error) {
		if cred := c.slot.Load(); cred != nil {
			return cred, nil
		}
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loginTimeout())
		defer cancel()
		cred, err := c.login(loginCtx)
		if err != nil {
			metrics.TokenRefresh.WithLabelValues(metrics.ResultError).Inc()
			return nil, err
		}
		metrics.TokenRefresh.WithLabelValues(metrics.ResultOK).Inc()
		c.slot.Store(cred)
		return cred, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, ctx.Err())
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*credential), nil
	}
}

func (c *Client) loginTimeout() time.Duration {
	if c.cfg.Timeout > 0 {
		return c.cfg.Timeout
	}
	return defaultTimeout
}

// invalidate empties the slot if it still holds stale. A credential stored by
// a newer login is kept.
func (c *Client) invalidate(stale *credential) {
	c.slot.CompareAndSwap(stale, nil)
}

func (c *Client) login(ctx context.Context) (*credential, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for _, field := range []struct{ name, value string }{
		{"username", c.cfg.Username},
		{"password", c.cfg.Password},
		{"otp_password", c.cfg.OTP},
	} {
		if err := form.WriteField(field.name, field.value); err != nil {
			return nil, fmt.Errorf("%w: build login form: %v", ErrAuthFailed, err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("%w: build login form: %v", ErrAuthFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+loginPath, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read login response: %v", ErrAuthFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: login returned status %d", ErrAuthFailed, resp.StatusCode)
	}
	token := gjson.GetBytes(data, "access_token").String()
	if token == "" {
		return nil, fmt.Errorf("%w: login response has no access_token", ErrAuthFailed)
	}
	log.Printf("[Catalog] Acquired access token")
	return &credential{token: token, acquiredAt: time.Now()}, nil
}

// do sends an authenticated request built by newReq. A 401 empties the
// credential slot and the request is retried exactly once with a fresh
// credential; whatever the retry returns is final.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	send := func() (*http.Response, *credential, error) {
		cred, err := c.currentCredential(ctx)
		if err != nil {
			return nil, nil, err
		}
		req, err := newReq()
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+cred.token)
		req.Header.Set("Accept", "application/json, text/plain, */*")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		return resp, cred, nil
	}

	resp, cred, err := send()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	log.Printf("[Catalog] Credential rejected, logging in again")
	c.invalidate(cred)
	resp, _, err = send()
	return resp, err
}

// Search looks titles up. Failures never propagate as hard errors: the result
// is then empty and the error only describes why, for display.
func (c *Client) Search(ctx context.Context, title string) ([]Candidate, error) {
	if !c.Configured() {
		return []Candidate{}, ErrCatalogUnavailable
	}

	query := url.Values{}
	query.Set("page", "1")
	query.Set("title", title)
	query.Set("type", "media")
	searchURL := c.cfg.BaseURL + searchPath + "?" + query.Encode()

	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	})
	if err != nil {
		log.Printf("[Catalog] Search %q failed: %v", title, err)
		metrics.CatalogRequests.WithLabelValues("search", metrics.ResultError).Inc()
		return []Candidate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Catalog] Search %q returned status %d", title, resp.StatusCode)
		metrics.CatalogRequests.WithLabelValues("search", metrics.ResultError).Inc()
		if resp.StatusCode == http.StatusUnauthorized {
			return []Candidate{}, ErrAuthFailed
		}
		return []Candidate{}, fmt.Errorf("%w: search returned status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		metrics.CatalogRequests.WithLabelValues("search", metrics.ResultError).Inc()
		return []Candidate{}, fmt.Errorf("%w: read search response: %v", ErrCatalogUnavailable, err)
	}
	metrics.CatalogRequests.WithLabelValues("search", metrics.ResultOK).Inc()
	return parseCandidates(data), nil
}

// parseCandidates reads a search response leniently: numbers and strings are
// both accepted for years and ids, unknown fields are ignored.
func parseCandidates(data []byte) []Candidate {
	candidates := []Candidate{}
	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		result = result.Get("data")
	}
	result.ForEach(func(_, item gjson.Result) bool {
		candidates = append(candidates, Candidate{
			Title:         item.Get("title").String(),
			OriginalTitle: item.Get("original_title").String(),
			Year:          item.Get("year").String(),
			Type:          item.Get("type").String(),
			Overview:      item.Get("overview").String(),
			Rating:        item.Get("vote_average").Float(),
			VoteCount:     item.Get("vote_count").Int(),
			Popularity:    item.Get("popularity").Float(),
			Source:        item.Get("source").String(),
			PosterPath:    item.Get("poster_path").String(),
			ReleaseDate:   item.Get("release_date").String(),
			IDs: IDs{
				TMDB:    item.Get("tmdb_id").String(),
				Douban:  item.Get("douban_id").String(),
				Bangumi: item.Get("bangumi_id").String(),
			},
		})
		return true
	})
	return candidates
}

type subscribeBody struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Year        string  `json:"year"`
	TMDBID      *string `json:"tmdbid"`
	DoubanID    *string `json:"doubanid"`
	BangumiID   *string `json:"bangumiid"`
	Season      int     `json:"season"`
	BestVersion int     `json:"best_version"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Subscribe asks the catalog to track a title. It returns nil only when the
// catalog answered with a 2xx status.
func (c *Client) Subscribe(ctx context.Context, sub SubscribeRequest) error {
	if !c.Configured() {
		return ErrCatalogUnavailable
	}

	body, err := json.Marshal(subscribeBody{
		Name:        sub.Title,
		Type:        subscribeTypeName(sub.MediaType),
		Year:        sub.Year,
		TMDBID:      optional(sub.IDs.TMDB),
		DoubanID:    optional(sub.IDs.Douban),
		BangumiID:   optional(sub.IDs.Bangumi),
		Season:      0,
		BestVersion: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to encode subscribe request: %w", err)
	}

	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+subscribePath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		metrics.CatalogRequests.WithLabelValues("subscribe", metrics.ResultError).Inc()
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CatalogRequests.WithLabelValues("subscribe", metrics.ResultError).Inc()
		log.Printf("[Catalog] Subscribe %q returned status %d", sub.Title, resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrAuthFailed
		}
		return fmt.Errorf("%w: subscribe returned status %d", ErrCatalogUnavailable, resp.StatusCode)
	}
	metrics.CatalogRequests.WithLabelValues("subscribe", metrics.ResultOK).Inc()
	log.Printf("[Catalog] Subscribed to %q (%s)", sub.Title, sub.IDs.CatalogID())
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
}
