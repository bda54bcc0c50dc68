package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"moviebase/internal/domain"
)

// UpstreamError reports a failed catalog call, carrying the upstream status
// message when one was returned.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog request failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("catalog request failed (%d)", e.StatusCode)
}

// Client is a thin wrapper over the TMDB HTTP API. It attaches the API key
// and language to every request and decodes responses into domain types.
// Every call is a live round-trip: no retries, no caching.
type Client struct {
	baseURL  string
	apiKey   string
	language string
	http     *http.Client
}

type Config struct {
	BaseURL  string
	APIKey   string
	Language string
	Timeout  time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	httpClient := &http.Client{}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		http:     httpClient,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var upstream struct {
			StatusMessage string `json:"status_message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&upstream)
		return &UpstreamError{StatusCode: resp.StatusCode, Message: upstream.StatusMessage}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response %s: %w", path, err)
	}
	return nil
}

type movieJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
}

type pageJSON struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int64       `json:"total_results"`
	Results      []movieJSON `json:"results"`
}

type genreJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type detailJSON struct {
	movieJSON
	BackdropPath string      `json:"backdrop_path"`
	Runtime      int         `json:"runtime"`
	Tagline      string      `json:"tagline"`
	Genres       []genreJSON `json:"genres"`
	Credits      struct {
		Cast []struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			Character   string `json:"character"`
			ProfilePath string `json:"profile_path"`
		} `json:"cast"`
	} `json:"credits"`
	Videos struct {
		Results []struct {
			Key  string `json:"key"`
			Name string `json:"name"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
	Similar struct {
		Results []movieJSON `json:"results"`
	} `json:"similar"`
}

// Popular returns one page of the popular-movies listing.
func (c *Client) Popular(ctx context.Context, page int) (*domain.MoviePage, error) {
	var raw pageJSON
	if err := c.get(ctx, "/movie/popular", pageParams(page), &raw); err != nil {
		return nil, err
	}
	return pageToDomain(raw), nil
}

// Search returns one page of title-search results for query.
func (c *Client) Search(ctx context.Context, query string, page int) (*domain.MoviePage, error) {
	params := pageParams(page)
	params.Set("query", query)
	var raw pageJSON
	if err := c.get(ctx, "/search/movie", params, &raw); err != nil {
		return nil, err
	}
	return pageToDomain(raw), nil
}

// Summary fetches a single movie without cast/video/similar extras. The
// favorites aggregation uses this lighter call.
func (c *Client) Summary(ctx context.Context, id int64) (*domain.MovieSummary, error) {
	var raw movieJSON
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &raw); err != nil {
		return nil, err
	}
	summary := movieToDomain(raw)
	return &summary, nil
}

// Detail fetches a movie with credits, videos and similar titles appended in
// a single upstream call.
func (c *Client) Detail(ctx context.Context, id int64) (*domain.MovieDetail, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos,similar")
	var raw detailJSON
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), params, &raw); err != nil {
		return nil, err
	}

	detail := &domain.MovieDetail{
		MovieSummary: movieToDomain(raw.movieJSON),
		BackdropPath: raw.BackdropPath,
		Runtime:      raw.Runtime,
		Tagline:      raw.Tagline,
	}
	for _, g := range raw.Genres {
		detail.Genres = append(detail.Genres, domain.Genre{ID: g.ID, Name: g.Name})
	}
	for _, m := range raw.Credits.Cast {
		detail.Cast = append(detail.Cast, domain.CastMember{
			ID:          m.ID,
			Name:        m.Name,
			Character:   m.Character,
			ProfilePath: m.ProfilePath,
		})
	}
	for _, v := range raw.Videos.Results {
		detail.Videos = append(detail.Videos, domain.Video{
			Key:  v.Key,
			Name: v.Name,
			Site: v.Site,
			Type: v.Type,
		})
	}
	for _, m := range raw.Similar.Results {
		detail.Similar = append(detail.Similar, movieToDomain(m))
	}
	return detail, nil
}

// Genres returns the catalog's genre list.
func (c *Client) Genres(ctx context.Context) ([]domain.Genre, error) {
	var raw struct {
		Genres []genreJSON `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", nil, &raw); err != nil {
		return nil, err
	}
	genres := make([]domain.Genre, len(raw.Genres))
	for i, g := range raw.Genres {
		genres[i] = domain.Genre{ID: g.ID, Name: g.Name}
	}
	return genres, nil
}

func pageParams(page int) url.Values {
	params := url.Values{}
	if page <= 0 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	return params
}

func movieToDomain(m movieJSON) domain.MovieSummary {
	return domain.MovieSummary{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
	}
}

func pageToDomain(p pageJSON) *domain.MoviePage {
	page := &domain.MoviePage{
		Page:         p.Page,
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
		Results:      make([]domain.MovieSummary, len(p.Results)),
	}
	for i, m := range p.Results {
		page.Results[i] = movieToDomain(m)
	}
	return page
}
