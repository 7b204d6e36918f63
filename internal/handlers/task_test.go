package handlers

import (
	"bytes"
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
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite exercises the task routes through the full router,
// bearer tokens included.
type TaskHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskShare{})
	suite.Require().NoError(err)

	gin.SetMode(gin.TestMode)

	userRepo := repository.NewUserRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)
	shareRepo := repository.NewShareRepository(suite.db)

	tokens := token.NewJWT("test-secret")
	authService := services.NewAuthService(userRepo, tokens)
	_ = services.NewUserService(userRepo)
	taskService := services.NewTaskService(taskRepo, userRepo, shareRepo)

	authHandler := NewAuthHandler(authService)
	taskHandler := NewTaskHandler(taskService)

	suite.router = gin.New()
	suite.router.Use(middleware.Authenticate(tokens, userRepo))

	api := suite.router.Group("/api")
	api.POST("/auth/signup", authHandler.Signup)

	tasks := api.Group("/tasks")
	tasks.Use(middleware.RequireAuth())
	tasks.GET("", taskHandler.ListTasks)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("/:id", taskHandler.GetTask)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)
	tasks.POST("/:id/share", taskHandler.ShareTask)
	tasks.GET("/:id/shared-users", taskHandler.ListSharedUsers)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// signup registers a user and returns their session token
func (suite *TaskHandlerTestSuite) signup(username string) string {
	w := suite.doJSON(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"password": "supersecret",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var response dto.AuthResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response.Token
}

func (suite *TaskHandlerTestSuite) doJSON(method, url, bearer string, payload any) *httptest.ResponseRecorder {
	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) createTask(bearer, title string) dto.TaskDTO {
	w := suite.doJSON(http.MethodPost, "/api/tasks", bearer, map[string]any{
		"title": title,
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var task dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func (suite *TaskHandlerTestSuite) TestShareLifecycle() {
	aliceToken := suite.signup("alice")
	bobToken := suite.signup("bob")

	task := suite.createTask(aliceToken, "Buy milk")
	suite.Equal(models.TaskStatusTodo, task.Status)

	taskURL := fmt.Sprintf("/api/tasks/%d", task.ID)

	// Bob is neither owner nor shared: the task reads as nonexistent.
	w := suite.doJSON(http.MethodGet, taskURL, bobToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	// Alice shares with bob; bob can now read the task.
	w = suite.doJSON(http.MethodPost, taskURL+"/share", aliceToken, map[string]any{
		"usernames": []string{"bob"},
	})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.doJSON(http.MethodGet, taskURL, bobToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	// Reconciling to an empty list revokes bob's access again.
	w = suite.doJSON(http.MethodPost, taskURL+"/share", aliceToken, map[string]any{
		"usernames": []string{},
	})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.doJSON(http.MethodGet, taskURL, bobToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestShareReconciliation() {
	ownerToken := suite.signup("owner")
	suite.signup("anna")
	suite.signup("ben")
	suite.signup("carl")

	task := suite.createTask(ownerToken, "team work")
	shareURL := fmt.Sprintf("/api/tasks/%d/share", task.ID)

	w := suite.doJSON(http.MethodPost, shareURL, ownerToken, map[string]any{
		"usernames": []string{"anna", "ben"},
	})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.doJSON(http.MethodPost, shareURL, ownerToken, map[string]any{
		"usernames": []string{"ben", "carl"},
	})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.doJSON(http.MethodGet, fmt.Sprintf("/api/tasks/%d/shared-users", task.ID), ownerToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	var response dto.SharedUsersResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))

	usernames := make([]string, len(response.Users))
	for i, u := range response.Users {
		usernames[i] = u.Username
	}
	suite.ElementsMatch([]string{"ben", "carl"}, usernames)
}

func (suite *TaskHandlerTestSuite) TestCreateTaskWithInitialShares() {
	aliceToken := suite.signup("alice")
	bobToken := suite.signup("bob")

	w := suite.doJSON(http.MethodPost, "/api/tasks", aliceToken, map[string]any{
		"title":     "Buy milk",
		"usernames": []string{"bob"},
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var task dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))

	w = suite.doJSON(http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), bobToken, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTaskForbiddenForNonOwner() {
	aliceToken := suite.signup("alice")
	bobToken := suite.signup("bob")

	task := suite.createTask(aliceToken, "original")
	taskURL := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := suite.doJSON(http.MethodPut, taskURL, bobToken, map[string]any{
		"title": "hijacked",
	})
	suite.Equal(http.StatusForbidden, w.Code)

	var stored models.Task
	suite.Require().NoError(suite.db.First(&stored, task.ID).Error)
	suite.Equal("original", stored.Title)
}

func (suite *TaskHandlerTestSuite) TestUpdateTaskReplacesFields() {
	aliceToken := suite.signup("alice")

	task := suite.createTask(aliceToken, "original")
	taskURL := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := suite.doJSON(http.MethodPut, taskURL, aliceToken, map[string]any{
		"title":       "updated",
		"description": "now with details",
		"status":      "IN_PROGRESS",
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	var updated dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &updated))
	suite.Equal("updated", updated.Title)
	suite.Equal(models.TaskStatusInProgress, updated.Status)
	suite.Equal(task.OwnerID, updated.OwnerID)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	aliceToken := suite.signup("alice")
	bobToken := suite.signup("bob")

	task := suite.createTask(aliceToken, "to delete")
	taskURL := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := suite.doJSON(http.MethodDelete, taskURL, bobToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.doJSON(http.MethodDelete, taskURL, aliceToken, nil)
	suite.Equal(http.StatusNoContent, w.Code)

	// Still readable by ID for the owner, but gone from listings.
	w = suite.doJSON(http.MethodGet, taskURL, aliceToken, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.doJSON(http.MethodGet, "/api/tasks", aliceToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var list dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	suite.Empty(list.Tasks)
}

func (suite *TaskHandlerTestSuite) TestListTasksUnionOwnedAndShared() {
	aliceToken := suite.signup("alice")
	bobToken := suite.signup("bob")

	suite.createTask(aliceToken, "alice's own")
	shared := suite.createTask(bobToken, "bob's shared")
	suite.createTask(bobToken, "bob's private")

	w := suite.doJSON(http.MethodPost, fmt.Sprintf("/api/tasks/%d/share", shared.ID), bobToken, map[string]any{
		"usernames": []string{"alice"},
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.doJSON(http.MethodGet, "/api/tasks", aliceToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var list dto.TaskListResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))

	titles := make([]string, len(list.Tasks))
	for i, item := range list.Tasks {
		titles[i] = item.Title
	}
	suite.ElementsMatch([]string{"alice's own", "bob's shared"}, titles)
}

func (suite *TaskHandlerTestSuite) TestSharedUsersRequiresAccess() {
	aliceToken := suite.signup("alice")
	strangerToken := suite.signup("stranger")

	task := suite.createTask(aliceToken, "private")

	w := suite.doJSON(http.MethodGet, fmt.Sprintf("/api/tasks/%d/shared-users", task.ID), strangerToken, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestShareUnknownUser() {
	aliceToken := suite.signup("alice")

	task := suite.createTask(aliceToken, "private")

	w := suite.doJSON(http.MethodPost, fmt.Sprintf("/api/tasks/%d/share", task.ID), aliceToken, map[string]any{
		"usernames": []string{"ghost"},
	})
	suite.Equal(http.StatusNotFound, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
