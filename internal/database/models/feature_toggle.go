package models

// FeatureMovieRequest gates the movie request intake.
const FeatureMovieRequest = "movie_request"

// FeatureToggle is an administrator controlled on/off switch.
type FeatureToggle struct {
	Name    string `bson:"name"`
	Enabled bool   `bson:"enabled"`
}
