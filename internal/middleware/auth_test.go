package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetJWTSecret("test-secret")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("test-user-id", 24*time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, msg := parseAuthorization("Bearer " + token)
	require.NotNil(t, claims, msg)
	assert.Equal(t, "test-user-id", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func protectedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		userID, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "authenticated": ok})
	})
	return router
}

func TestJWTAuth(t *testing.T) {
	valid, err := GenerateToken("u-1", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("u-1", -time.Minute)
	require.NoError(t, err)

	otherKey := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	forged, err := otherKey.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedMsg    string
	}{
		{name: "Missing authorization header", header: "", expectedStatus: http.StatusUnauthorized, expectedMsg: MsgBadAuthHeader},
		{name: "Invalid token format", header: "InvalidToken", expectedStatus: http.StatusUnauthorized, expectedMsg: MsgBadAuthHeader},
		{name: "Wrong scheme", header: "Token " + valid, expectedStatus: http.StatusUnauthorized, expectedMsg: MsgBadAuthHeader},
		{name: "Expired token", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized, expectedMsg: MsgTokenExpired},
		{name: "Wrong signing key", header: "Bearer " + forged, expectedStatus: http.StatusUnauthorized, expectedMsg: MsgInvalidToken},
		{name: "Garbage token", header: "Bearer abc.def.ghi", expectedStatus: http.StatusUnauthorized, expectedMsg: MsgInvalidToken},
		{name: "Valid token", header: "Bearer " + valid, expectedStatus: http.StatusOK},
	}

	router := protectedRouter(JWTAuth())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedMsg != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.expectedMsg, body["msg"])
			}
		})
	}
}

func TestJWTAuthWithValidToken(t *testing.T) {
	token, err := GenerateToken("test-user-id", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter(JWTAuth()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"test-user-id","authenticated":true}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	router := protectedRouter(OptionalAuth())

	// Anonymous passes through
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","authenticated":false}`, w.Body.String())

	// Valid token identifies the caller
	token, err := GenerateToken("u-9", time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-9","authenticated":true}`, w.Body.String())

	// A bad token is not downgraded to anonymous
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer nope")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
