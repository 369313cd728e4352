package catalog

import (
	"fmt"
	"strings"

	"feedback-bot/internal/database/models"
)

// Candidate is one search hit returned by the catalog.
type Candidate struct {
	Title         string
	OriginalTitle string
	Year          string
	Type          string // Catalog wording, see MediaTypeOf
	Overview      string
	Rating        float64
	VoteCount     int64
	Popularity    float64
	Source        string
	PosterPath    string
	ReleaseDate   string
	IDs           IDs
}

// IDs are the identifiers a title may carry in the catalog's upstream
// databases. Lookups prefer TMDB, then Douban, then Bangumi.
type IDs struct {
	TMDB    string
	Douban  string
	Bangumi string
}

const (
	doubanPrefix  = "db"
	bangumiPrefix = "bgm"
)

// CatalogID encodes the preferred identifier as a short token without
// underscores: TMDB ids as is, Douban and Bangumi ids prefixed. It is empty
// when the candidate has no identifier at all.
func (ids IDs) CatalogID() string {
	switch {
	case ids.TMDB != "":
		return ids.TMDB
	case ids.Douban != "":
		return doubanPrefix + ids.Douban
	case ids.Bangumi != "":
		return bangumiPrefix + ids.Bangumi
	}
	return ""
}

// ParseCatalogID is the inverse of IDs.CatalogID.
func ParseCatalogID(id string) (IDs, error) {
	if id == "" || strings.ContainsAny(id, "_ ") {
		return IDs{}, fmt.Errorf("invalid catalog id %q", id)
	}
	switch {
	case strings.HasPrefix(id, bangumiPrefix):
		return IDs{Bangumi: strings.TrimPrefix(id, bangumiPrefix)}, nil
	case strings.HasPrefix(id, doubanPrefix):
		return IDs{Douban: strings.TrimPrefix(id, doubanPrefix)}, nil
	}
	return IDs{TMDB: id}, nil
}

// MediaTypeOf maps the catalog's type wording to a media type. Anything that
// is not recognisably a series is treated as a movie.
func MediaTypeOf(c Candidate) models.MediaType {
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "电视剧", "tv", "series", "show":
		return models.MediaTV
	}
	return models.MediaMovie
}

// SubscribeRequest is what the catalog needs to start tracking a title.
type SubscribeRequest struct {
	Title     string
	Year      string
	MediaType models.MediaType
	IDs       IDs
}

// subscribeTypeName is the catalog's wording for a media type.
func subscribeTypeName(t models.MediaType) string {
	if t == models.MediaTV {
		return "电视剧"
	}
	return "电影"
}
