package domain

import "time"

// MovieSummary is the compact movie shape returned by catalog list endpoints
// and by the favorites aggregation.
type MovieSummary struct {
	ID          int64
	Title       string
	Overview    string
	PosterPath  string
	ReleaseDate string
	VoteAverage float64
	VoteCount   int64
}

// MovieDetail is the full movie shape returned by the catalog detail endpoint,
// including credits, videos and similar titles.
type MovieDetail struct {
	MovieSummary
	BackdropPath string
	Runtime      int
	Tagline      string
	Genres       []Genre
	Cast         []CastMember
	Videos       []Video
	Similar      []MovieSummary
}

// Genre is a catalog genre entry.
type Genre struct {
	ID   int64
	Name string
}

// CastMember is one credited actor on a movie.
type CastMember struct {
	ID          int64
	Name        string
	Character   string
	ProfilePath string
}

// Video is a trailer or clip attached to a movie.
type Video struct {
	Key  string
	Name string
	Site string
	Type string
}

// MoviePage is one page of catalog list results.
type MoviePage struct {
	Page         int
	TotalPages   int
	TotalResults int64
	Results      []MovieSummary
}

// FavoriteMovie pairs a resolved catalog movie with the timestamp at which
// the user favorited it.
type FavoriteMovie struct {
	MovieSummary
	AddedAt time.Time
}
