package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"moviebase/internal/auth"
	"moviebase/internal/repository/sqlite"
	"moviebase/internal/service"
	"moviebase/internal/tmdb"
)

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenIssuer
	// movie IDs the stub catalog answers with 404
	failing map[string]bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{failing: make(map[string]bool)}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/movie/popular":
			fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":1,"results":[{"id":550,"title":"Fight Club"}]}`)
		case r.URL.Path == "/search/movie":
			fmt.Fprintf(w, `{"page":1,"total_pages":1,"total_results":1,"results":[{"id":12,"title":"%s"}]}`, r.URL.Query().Get("query"))
		case r.URL.Path == "/genre/movie/list":
			fmt.Fprint(w, `{"genres":[{"id":28,"name":"Action"}]}`)
		case strings.HasPrefix(r.URL.Path, "/movie/"):
			id := strings.TrimPrefix(r.URL.Path, "/movie/")
			if ts.failing[id] {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"status_message":"The resource you requested could not be found."}`)
				return
			}
			fmt.Fprintf(w, `{"id":%s,"title":"Movie %s","poster_path":"/p%s.jpg"}`, id, id, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	require.NoError(t, userRepo.Init(context.Background()))

	userService, err := service.NewUserService(userRepo)
	require.NoError(t, err)

	catalog := tmdb.NewClient(tmdb.Config{BaseURL: upstream.URL, APIKey: "test-key"})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	aggregator := service.NewFavoritesAggregator(userService, catalog, service.AggregatorConfig{
		Concurrency: 4,
		Timeout:     2 * time.Second,
		Logger:      logger,
	})

	ts.tokens = auth.NewTokenIssuer("test-secret", time.Hour)

	router := gin.New()
	handler := NewHandler(userService, aggregator, catalog, ts.tokens, db, "https://image.example/t/p", "test", logger)
	handler.RegisterRoutes(router)
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func (ts *testServer) registerUser(t *testing.T, username, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"email":%q,"password":%q}`, username, email, password)
	rec, parsed := ts.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	return parsed["token"].(string)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"ana","email":"a@x.com","password":"secret1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, parsed["success"])
	require.NotEmpty(t, parsed["token"])

	user := parsed["user"].(map[string]any)
	require.Equal(t, "a@x.com", user["email"])
	require.Equal(t, "ana", user["username"])
	require.NotContains(t, user, "password")
	require.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_MissingField(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"ana","email":"a@x.com"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, false, parsed["success"])
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "ana", "a@x.com", "secret1")

	rec, parsed := ts.do(t, http.MethodPost, "/api/auth/register", "",
		`{"username":"other","email":"a@x.com","password":"secret1"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "User already exists", parsed["message"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "ana", "a@x.com", "secret1")

	rec, parsed := ts.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"a@x.com","password":"secret1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, parsed["success"])
	require.NotEmpty(t, parsed["token"])
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.registerUser(t, "ana", "a@x.com", "secret1")

	rec, parsed := ts.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"a@x.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid email or password", parsed["message"])

	// unknown email gets the identical response
	rec, parsed = ts.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email":"ghost@x.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid email or password", parsed["message"])
}

func TestAuthGate_MissingHeader(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/users/favorites", "", "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, parsed["success"])
	require.Equal(t, "Access token required", parsed["message"])
}

func TestAuthGate_BadToken(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/users/favorites", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid token", parsed["message"])
}

func TestAuthGate_TokenForMissingUser(t *testing.T) {
	ts := newTestServer(t)

	orphan, err := ts.tokens.Issue(999, "ghost@x.com")
	require.NoError(t, err)

	rec, parsed := ts.do(t, http.MethodGet, "/api/users/favorites", orphan, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Invalid token", parsed["message"])
}

func TestAddFavorite_AndDuplicate(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "ana", "a@x.com", "secret1")

	rec, parsed := ts.do(t, http.MethodPost, "/api/users/favorites", token, `{"movieId":550}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, parsed["success"])

	rec, parsed = ts.do(t, http.MethodPost, "/api/users/favorites", token, `{"movieId":550}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Movie already in favorites", parsed["message"])
}

func TestListFavorites_DropsUpstreamFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.failing["202"] = true
	token := ts.registerUser(t, "ana", "a@x.com", "secret1")

	for _, body := range []string{`{"movieId":101}`, `{"movieId":202}`, `{"movieId":303}`} {
		rec, _ := ts.do(t, http.MethodPost, "/api/users/favorites", token, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, parsed := ts.do(t, http.MethodGet, "/api/users/favorites", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, parsed["success"])

	favorites := parsed["favorites"].([]any)
	require.Len(t, favorites, 2)
	require.Equal(t, float64(101), favorites[0].(map[string]any)["id"])
	require.Equal(t, float64(303), favorites[1].(map[string]any)["id"])

	first := favorites[0].(map[string]any)
	require.Equal(t, "https://image.example/t/p/w500/p101.jpg", first["poster_url"])
	require.NotEmpty(t, first["added_at"])
}

func TestSearch_RequiresQuery(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/movies/search", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Query parameter is required", parsed["message"])
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/movies/search?query=leon", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, parsed["success"])
	require.Len(t, parsed["results"].([]any), 1)
}

func TestPopular(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/movies/popular?page=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := parsed["results"].([]any)
	require.Equal(t, "Fight Club", results[0].(map[string]any)["title"])
}

func TestMovieDetail_InvalidID(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/movies/abc", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid movie id", parsed["message"])
}

func TestMovieDetail_UpstreamMessagePassthrough(t *testing.T) {
	ts := newTestServer(t)
	ts.failing["999"] = true

	rec, parsed := ts.do(t, http.MethodGet, "/api/movies/999", "", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "The resource you requested could not be found.", parsed["message"])
}

func TestGenres(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/movies/genres/list", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, parsed["genres"].([]any), 1)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec, parsed := ts.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, parsed["success"])
	require.Equal(t, "ok", parsed["status"])
	require.Equal(t, "test", parsed["environment"])
	require.Equal(t, true, parsed["tmdb_configured"])
	require.Equal(t, true, parsed["database_connected"])
}

func TestWatchlists(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerUser(t, "ana", "a@x.com", "secret1")

	rec, parsed := ts.do(t, http.MethodPost, "/api/users/watchlists", token, `{"name":"to watch"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	listID := parsed["watchlist"].(map[string]any)["id"].(string)
	require.NotEmpty(t, listID)

	rec, _ = ts.do(t, http.MethodPost, "/api/users/watchlists/"+listID+"/movies", token, `{"movieId":101}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, parsed = ts.do(t, http.MethodPost, "/api/users/watchlists/"+listID+"/movies", token, `{"movieId":101}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Movie already in watchlist", parsed["message"])

	rec, parsed = ts.do(t, http.MethodPost, "/api/users/watchlists/missing/movies", token, `{"movieId":101}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, parsed = ts.do(t, http.MethodGet, "/api/users/watchlists", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	lists := parsed["watchlists"].([]any)
	require.Len(t, lists, 1)
	require.Len(t, lists[0].(map[string]any)["items"].([]any), 1)
}
