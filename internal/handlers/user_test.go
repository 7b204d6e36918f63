package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/project/task-manager-api/internal/dto"
	"github.com/project/task-manager-api/internal/middleware"
	"github.com/project/task-manager-api/internal/models"
	"github.com/project/task-manager-api/internal/repository"
	"github.com/project/task-manager-api/internal/services"
	"github.com/project/task-manager-api/internal/token"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type userTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func setupUserTestEnv(t *testing.T) userTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskShare{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	gin.SetMode(gin.TestMode)

	userRepo := repository.NewUserRepository(db)
	tokens := token.NewJWT("test-secret")
	authService := services.NewAuthService(userRepo, tokens)
	userService := services.NewUserService(userRepo)

	authHandler := NewAuthHandler(authService)
	userHandler := NewUserHandler(userService)

	r := gin.New()
	r.Use(middleware.Authenticate(tokens, userRepo))

	api := r.Group("/api")
	api.POST("/auth/signup", authHandler.Signup)

	users := api.Group("/users")
	users.Use(middleware.RequireAuth())
	users.GET("", userHandler.ListUsers)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeleteUser)
	users.POST("/:id/upload-profile-picture", userHandler.UploadProfilePicture)

	return userTestEnv{db: db, router: r}
}

func (env userTestEnv) doJSON(t *testing.T, method, url, bearer string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env userTestEnv) signup(t *testing.T, username string) dto.AuthResponse {
	t.Helper()

	w := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestUserHandler_UpdateUser(t *testing.T) {
	env := setupUserTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	aliceURL := fmt.Sprintf("/api/users/%d", alice.User.ID)

	// Another user cannot update alice's profile.
	w := env.doJSON(t, http.MethodPut, aliceURL, bob.Token, map[string]string{
		"username": "hijacked",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(t, http.MethodPut, aliceURL, alice.Token, map[string]string{
		"username":     "alice2",
		"display_name": "Alice",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, "alice2", updated.Username)
	require.Equal(t, "Alice", updated.DisplayName)
}

func TestUserHandler_DeleteUserInvalidatesSession(t *testing.T) {
	env := setupUserTestEnv(t)
	alice := env.signup(t, "alice")

	w := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", alice.User.ID), alice.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The account is deactivated, so the still-unexpired token is rejected.
	w = env.doJSON(t, http.MethodGet, "/api/users", alice.Token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "ACCOUNT_DEACTIVATED")
}

func TestUserHandler_UploadProfilePicture(t *testing.T) {
	env := setupUserTestEnv(t)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	uploadURL := fmt.Sprintf("/api/users/%d/upload-profile-picture", alice.User.ID)
	image := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	w := env.doJSON(t, http.MethodPost, uploadURL, bob.Token, map[string]string{"image": image})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(t, http.MethodPost, uploadURL, alice.Token, map[string]string{"image": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, uploadURL, alice.Token, map[string]string{"image": image})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, env.db.First(&stored, alice.User.ID).Error)
	require.Equal(t, image, stored.ProfilePicture)
}

func TestUserHandler_GetUser(t *testing.T) {
	env := setupUserTestEnv(t)
	alice := env.signup(t, "alice")

	w := env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/users/%d", alice.User.ID), alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Password hashes never appear in responses.
	require.NotContains(t, w.Body.String(), "password")

	w = env.doJSON(t, http.MethodGet, "/api/users/99999", alice.Token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
