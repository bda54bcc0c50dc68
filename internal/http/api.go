package http

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"moviebase/internal/auth"
	"moviebase/internal/domain"
	"moviebase/internal/service"
	"moviebase/internal/tmdb"
)

const userContextKey = "currentUser"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users       service.UserService
	favorites   *service.FavoritesAggregator
	catalog     *tmdb.Client
	tokens      *auth.TokenIssuer
	db          *sql.DB
	imageBase   string
	environment string
	logger      *logrus.Logger
}

func NewHandler(
	users service.UserService,
	favorites *service.FavoritesAggregator,
	catalog *tmdb.Client,
	tokens *auth.TokenIssuer,
	db *sql.DB,
	imageBase string,
	environment string,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:       users,
		favorites:   favorites,
		catalog:     catalog,
		tokens:      tokens,
		db:          db,
		imageBase:   strings.TrimRight(imageBase, "/"),
		environment: environment,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		movies := api.Group("/movies")
		{
			movies.GET("/popular", h.popularMovies)
			movies.GET("/search", h.searchMovies)
			movies.GET("/genres/list", h.listGenres)
			movies.GET("/:id", h.movieDetail)
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.register)
			authGroup.POST("/login", h.login)
		}

		users := api.Group("/users", h.requireAuth())
		{
			users.GET("/favorites", h.listFavorites)
			users.POST("/favorites", h.addFavorite)
			users.GET("/watchlists", h.listWatchlists)
			users.POST("/watchlists", h.createWatchlist)
			users.POST("/watchlists/:id/movies", h.addWatchlistMovie)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireAuth gates a route group behind a valid bearer token. It verifies
// the token, loads the referenced user (without the password hash) and stores
// it on the request context. It never mutates state.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			failWith(c, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := h.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			failWith(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			failWith(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	return c.MustGet(userContextKey).(*domain.User)
}

func failWith(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func (h *Handler) health(c *gin.Context) {
	dbConnected := false
	if h.db != nil && h.db.PingContext(c.Request.Context()) == nil {
		dbConnected = true
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"status":             "ok",
		"environment":        h.environment,
		"tmdb_configured":    h.catalog.Configured(),
		"database_connected": dbConnected,
	})
}

func (h *Handler) popularMovies(c *gin.Context) {
	page := pageQuery(c)
	result, err := h.catalog.Popular(c.Request.Context(), page)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.pageToResponse(result))
}

func (h *Handler) searchMovies(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		failWith(c, http.StatusBadRequest, "Query parameter is required")
		return
	}

	result, err := h.catalog.Search(c.Request.Context(), query, pageQuery(c))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.pageToResponse(result))
}

func (h *Handler) movieDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		failWith(c, http.StatusBadRequest, "Invalid movie id")
		return
	}

	detail, err := h.catalog.Detail(c.Request.Context(), id)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "movie": h.detailToResponse(detail)})
}

func (h *Handler) listGenres(c *gin.Context) {
	genres, err := h.catalog.Genres(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	resp := make([]GenreResponse, len(genres))
	for i, g := range genres {
		resp[i] = GenreResponse{ID: g.ID, Name: g.Name}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "genres": resp})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, "Username, email and password are required")
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			failWith(c, http.StatusBadRequest, "User already exists")
			return
		}
		h.internalError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   token,
		"user":    userToResponse(user),
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			failWith(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.internalError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    userToResponse(user),
	})
}

func (h *Handler) listFavorites(c *gin.Context) {
	user := currentUser(c)
	movies, err := h.favorites.Aggregate(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]FavoriteMovieResponse, len(movies))
	for i := range movies {
		resp[i] = h.favoriteToResponse(movies[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorites": resp})
}

type addFavoriteRequest struct {
	MovieID int64 `json:"movieId" binding:"required"`
}

func (h *Handler) addFavorite(c *gin.Context) {
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, "movieId is required")
		return
	}

	user := currentUser(c)
	if err := h.users.AddFavorite(c.Request.Context(), user.ID, req.MovieID); err != nil {
		if errors.Is(err, service.ErrDuplicateFavorite) {
			failWith(c, http.StatusBadRequest, "Movie already in favorites")
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Movie added to favorites"})
}

func (h *Handler) listWatchlists(c *gin.Context) {
	user := currentUser(c)
	lists, err := h.users.ListWatchlists(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]WatchlistResponse, len(lists))
	for i := range lists {
		resp[i] = watchlistToResponse(lists[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "watchlists": resp})
}

type createWatchlistRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createWatchlist(c *gin.Context) {
	var req createWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, "Watchlist name is required")
		return
	}

	user := currentUser(c)
	list, err := h.users.CreateWatchlist(c.Request.Context(), user.ID, req.Name)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "watchlist": watchlistToResponse(*list)})
}

type addWatchlistMovieRequest struct {
	MovieID int64 `json:"movieId" binding:"required"`
}

func (h *Handler) addWatchlistMovie(c *gin.Context) {
	var req addWatchlistMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, "movieId is required")
		return
	}

	user := currentUser(c)
	err := h.users.AddWatchlistItem(c.Request.Context(), user.ID, c.Param("id"), req.MovieID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWatchlistNotFound):
			failWith(c, http.StatusNotFound, "Watchlist not found")
		case errors.Is(err, service.ErrDuplicateWatchlistItem):
			failWith(c, http.StatusBadRequest, "Movie already in watchlist")
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Movie added to watchlist"})
}

func (h *Handler) upstreamError(c *gin.Context, err error) {
	var upstream *tmdb.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": upstream.Message})
		return
	}
	h.logger.Warnf("catalog request failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch data from movie catalog"})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.Errorf("request failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
}

func pageQuery(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		return 1
	}
	return page
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

type MovieResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	PosterURL   string  `json:"poster_url,omitempty"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
}

type MoviePageResponse struct {
	Success      bool            `json:"success"`
	Page         int             `json:"page"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int64           `json:"total_results"`
	Results      []MovieResponse `json:"results"`
}

type MovieDetailResponse struct {
	MovieResponse
	BackdropPath string          `json:"backdrop_path"`
	Runtime      int             `json:"runtime"`
	Tagline      string          `json:"tagline"`
	Genres       []GenreResponse `json:"genres"`
	Cast         []CastResponse  `json:"cast"`
	Videos       []VideoResponse `json:"videos"`
	Similar      []MovieResponse `json:"similar"`
}

type GenreResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CastResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

type VideoResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type FavoriteMovieResponse struct {
	MovieResponse
	AddedAt string `json:"added_at"`
}

type WatchlistResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Items     []WatchlistItemResponse `json:"items"`
	CreatedAt string                  `json:"created_at"`
}

type WatchlistItemResponse struct {
	MovieID int64  `json:"movie_id"`
	AddedAt string `json:"added_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) movieToResponse(m domain.MovieSummary) MovieResponse {
	resp := MovieResponse{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
	}
	if h.imageBase != "" && m.PosterPath != "" {
		resp.PosterURL = h.imageBase + "/w500" + m.PosterPath
	}
	return resp
}

func (h *Handler) pageToResponse(page *domain.MoviePage) MoviePageResponse {
	resp := MoviePageResponse{
		Success:      true,
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		TotalResults: page.TotalResults,
		Results:      make([]MovieResponse, len(page.Results)),
	}
	for i, m := range page.Results {
		resp.Results[i] = h.movieToResponse(m)
	}
	return resp
}

func (h *Handler) detailToResponse(detail *domain.MovieDetail) MovieDetailResponse {
	resp := MovieDetailResponse{
		MovieResponse: h.movieToResponse(detail.MovieSummary),
		BackdropPath:  detail.BackdropPath,
		Runtime:       detail.Runtime,
		Tagline:       detail.Tagline,
		Genres:        make([]GenreResponse, len(detail.Genres)),
		Cast:          make([]CastResponse, len(detail.Cast)),
		Videos:        make([]VideoResponse, len(detail.Videos)),
		Similar:       make([]MovieResponse, len(detail.Similar)),
	}
	for i, g := range detail.Genres {
		resp.Genres[i] = GenreResponse{ID: g.ID, Name: g.Name}
	}
	for i, m := range detail.Cast {
		resp.Cast[i] = CastResponse{
			ID:          m.ID,
			Name:        m.Name,
			Character:   m.Character,
			ProfilePath: m.ProfilePath,
		}
	}
	for i, v := range detail.Videos {
		resp.Videos[i] = VideoResponse{Key: v.Key, Name: v.Name, Site: v.Site, Type: v.Type}
	}
	for i, m := range detail.Similar {
		resp.Similar[i] = h.movieToResponse(m)
	}
	return resp
}

func (h *Handler) favoriteToResponse(fav domain.FavoriteMovie) FavoriteMovieResponse {
	return FavoriteMovieResponse{
		MovieResponse: h.movieToResponse(fav.MovieSummary),
		AddedAt:       fav.AddedAt.Format(time.RFC3339),
	}
}

func watchlistToResponse(list domain.Watchlist) WatchlistResponse {
	resp := WatchlistResponse{
		ID:        list.ID,
		Name:      list.Name,
		Items:     make([]WatchlistItemResponse, len(list.Items)),
		CreatedAt: list.CreatedAt.Format(time.RFC3339),
	}
	for i, item := range list.Items {
		resp.Items[i] = WatchlistItemResponse{
			MovieID: item.MovieID,
			AddedAt: item.AddedAt.Format(time.RFC3339),
		}
	}
	return resp
}
