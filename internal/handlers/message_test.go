package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"team-chat-service/internal/mocks"
	"team-chat-service/internal/models"
	"team-chat-service/internal/ws"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/messages/:channel_id", handler.GetChannelMessages)
	r.POST("/messages/:channel_id", handler.PostMessage)
	return r
}

func TestGetChannelMessagesPaginates(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewMessageHandler(messageRepo, channelRepo, ws.NewHub())
	router := setupMessageRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("GetChannelMessages", mock.Anything, 5, 2, 10).
		Return(models.MessagePage{
			Messages:      []models.Message{{ID: 11, ChannelID: 5, Content: "hello"}},
			CurrentPage:   2,
			TotalPages:    3,
			TotalMessages: 25,
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/5?page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.MessagePage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.CurrentPage)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 25, resp.TotalMessages)
	messageRepo.AssertExpectations(t)
	channelRepo.AssertExpectations(t)
}

func TestGetChannelMessagesForbiddenForNonMember(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewMessageHandler(messageRepo, channelRepo, ws.NewHub())
	router := setupMessageRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	channelRepo.AssertExpectations(t)
}

func TestPostMessagePersistsThenBroadcasts(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewMessageHandler(messageRepo, channelRepo, ws.NewHub())
	router := setupMessageRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, "hello").
		Return(models.Message{ID: 11, ChannelID: 5, SenderID: 1, Content: "hello"}, nil).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages/5", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
	channelRepo.AssertExpectations(t)
}

func TestPostMessagePersistFailureDoesNotBroadcast(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	channelRepo := new(mocks.ChannelRepositoryMock)
	handler := NewMessageHandler(messageRepo, channelRepo, ws.NewHub())
	router := setupMessageRouter(handler)

	channelRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, "hello").
		Return(models.Message{}, assert.AnError).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages/5", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	messageRepo.AssertExpectations(t)
}
