package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"team-chat-service/internal/mocks"
	"team-chat-service/internal/models"
	"team-chat-service/internal/repositories"
	"team-chat-service/internal/ws"
)

func setupFriendRouter(handler *FriendHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/friends/request", handler.SendRequest)
	r.POST("/friends/accept", handler.AcceptRequest)
	r.POST("/friends/reject", handler.RejectRequest)
	r.GET("/friends/pending", handler.PendingRequests)
	r.GET("/friends", handler.ListFriends)
	return r
}

func TestSendFriendRequest(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, ws.NewHub(), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("CreateRequest", mock.Anything, 1, 2).Return(nil).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestSendFriendRequestToSelfRejected(t *testing.T) {
	handler := NewFriendHandler(new(mocks.FriendRepositoryMock), ws.NewHub(), nil)
	router := setupFriendRouter(handler)

	body := bytes.NewBufferString(`{"user_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendFriendRequestAlreadyFriends(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, ws.NewHub(), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("CreateRequest", mock.Anything, 1, 2).Return(repositories.ErrAlreadyFriends).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/request", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestAcceptFriendRequestPingsSender(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	hub := ws.NewHub()
	handler := NewFriendHandler(friendRepo, hub, nil)
	router := setupFriendRouter(handler)

	friendRepo.On("AcceptRequest", mock.Anything, 1, 2).Return(nil).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/accept", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestAcceptMissingRequestNotFound(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, ws.NewHub(), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("AcceptRequest", mock.Anything, 1, 2).Return(repositories.ErrRequestNotFound).Once()

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/accept", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	friendRepo.AssertExpectations(t)
}

func TestListFriends(t *testing.T) {
	friendRepo := new(mocks.FriendRepositoryMock)
	handler := NewFriendHandler(friendRepo, ws.NewHub(), nil)
	router := setupFriendRouter(handler)

	friendRepo.On("ListFriends", mock.Anything, 1).
		Return([]models.PublicUser{{ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friendRepo.AssertExpectations(t)
}
