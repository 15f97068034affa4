package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/database"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/export"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/middleware"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/summary"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/transcription"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

// TranscriptService reports caption availability and transcribes videos
type TranscriptService interface {
	ListAvailability(ctx context.Context, videoURL string, langs []string) (*models.Availability, error)
	Transcribe(ctx context.Context, videoURL, lang string) (*transcription.Result, error)
}

// SummaryService builds per-language summaries
type SummaryService interface {
	Summarize(ctx context.Context, req summary.Request) (*models.SummarySet, error)
}

// Assistant answers FAQ questions
type Assistant interface {
	Answer(ctx context.Context, question string) string
}

// FeedbackPublisher hands feedback to the mail worker
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, fb *models.Feedback) error
}

// Exporter stores rendered documents
type Exporter interface {
	Export(ctx context.Context, userID string, doc models.ExportDocument, format models.ExportFormat) (*export.Result, error)
	List(ctx context.Context, userID string) ([]export.Result, error)
	Delete(ctx context.Context, userID, key string) error
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

type API struct {
	accounts    database.AccountStore
	transcripts TranscriptService
	summaries   SummaryService
	assistant   Assistant
	feedback    FeedbackPublisher
	exporter    Exporter
	health      map[string]HealthCheck

	languages []string
	tokenTTL  time.Duration
	logger    *logging.Logger
}

func (api *API) log(c *gin.Context) *logging.Logger {
	l := api.logger
	if id := c.GetString("request_id"); id != "" {
		l = l.WithRequestID(id)
	}
	return l
}

// bindOptionalJSON decodes a JSON body when one was sent
func bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func missingFields(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(api.health))
	for name, check := range api.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	if status != http.StatusOK {
		c.JSON(status, gin.H{"status": "unhealthy", "checks": checks})
		return
	}
	c.JSON(status, gin.H{"status": "healthy", "checks": checks})
}

// Accounts

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (api *API) register(c *gin.Context) {
	var req registerRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		missingFields(c)
		return
	}

	_, err := api.accounts.CreateUser(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, database.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	case errors.Is(err, database.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		return
	case err != nil:
		api.log(c).WithError(err).Error("Failed to register user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (api *API) login(c *gin.Context) {
	var req loginRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		missingFields(c)
		return
	}

	user, err := api.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, database.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		api.log(c).WithError(err).Error("Failed to authenticate user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, api.tokenTTL)
	if err != nil {
		api.log(c).WithError(err).Error("Failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "username": user.Username})
}

// currentUser loads the authenticated user, writing the error response when
// the account no longer exists
func (api *API) currentUser(c *gin.Context) (*models.User, bool) {
	userID, _ := middleware.GetUserID(c)
	user, err := api.accounts.GetUserByID(c.Request.Context(), userID)
	if errors.Is(err, database.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		api.log(c).WithError(err).Error("Failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return nil, false
	}
	return user, true
}

func (api *API) respondProfile(c *gin.Context, user *models.User) {
	profile, err := database.LoadProfile(c.Request.Context(), api.accounts, user)
	if err != nil {
		api.log(c).WithError(err).Error("Failed to load profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type profileRequest struct {
	Username string `json:"username"`
}

func (api *API) getProfile(c *gin.Context) {
	var req profileRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Username == "" {
		missingFields(c)
		return
	}

	user, err := api.accounts.GetUserByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, database.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		api.log(c).WithError(err).Error("Failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	api.respondProfile(c, user)
}

type updateProfileRequest struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (api *API) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	userID, _ := middleware.GetUserID(c)
	user, err := api.accounts.UpdateProfile(c.Request.Context(), userID, req.OldPassword, req.Username, req.NewPassword)
	switch {
	case errors.Is(err, database.ErrInvalidCredentials), errors.Is(err, database.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	case errors.Is(err, database.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		return
	case err != nil:
		api.log(c).WithError(err).Error("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	api.respondProfile(c, user)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (api *API) addSearch(c *gin.Context) {
	var req searchRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		missingFields(c)
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := api.accounts.AddSearch(c.Request.Context(), userID, req.Query); err != nil {
		api.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Search added successfully"})
}

type downloadRequest struct {
	Item string `json:"item"`
}

func (api *API) addDownload(c *gin.Context) {
	var req downloadRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Item) == "" {
		missingFields(c)
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := api.accounts.AddDownload(c.Request.Context(), userID, req.Item); err != nil {
		api.historyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Download added successfully"})
}

func (api *API) historyError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	api.log(c).WithError(err).Error("Failed to record history")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record history"})
}

// Feedback

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (api *API) sendFeedback(c *gin.Context) {
	var req feedbackRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Feedback) == "" {
		missingFields(c)
		return
	}
	if api.feedback == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feedback is not available"})
		return
	}

	user, ok := api.currentUser(c)
	if !ok {
		return
	}

	fb := &models.Feedback{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		Username: user.Username,
		Text:     req.Feedback,
		SentAt:   time.Now().UTC(),
	}
	if err := api.feedback.PublishFeedback(c.Request.Context(), fb); err != nil {
		api.log(c).WithError(err).Error("Failed to queue feedback")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to send feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback sent successfully"})
}

// Assistant

type assistantRequest struct {
	TextInput string `json:"text_input"`
}

func (api *API) askAssistant(c *gin.Context) {
	var req assistantRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.TextInput) == "" {
		missingFields(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": api.assistant.Answer(c.Request.Context(), req.TextInput)})
}
