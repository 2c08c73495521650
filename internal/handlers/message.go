package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"team-chat-service/internal/repositories"
	"team-chat-service/internal/ws"
)

// MessageHandler serves channel history over REST. Live delivery happens
// on the socket; posting here persists and fans out the same way.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	channelRepo repositories.ChannelRepository
	hub         *ws.Hub
}

func NewMessageHandler(messageRepo repositories.MessageRepository, channelRepo repositories.ChannelRepository, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, channelRepo: channelRepo, hub: hub}
}

// GetChannelMessages returns one page of history, oldest first within the
// page, newest page first.
func (h *MessageHandler) GetChannelMessages(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.channelRepo.IsMember(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.messageRepo.GetChannelMessages(c.Request.Context(), channelID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load messages"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// PostMessage persists a message and broadcasts it to the channel room.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,max=4000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.channelRepo.IsMember(c.Request.Context(), channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel member"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), channelID, userID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save message"})
		return
	}

	// persisted first; the room only ever sees durable messages
	_ = h.hub.BroadcastToRoom(channelID, ws.EventMessageNew, msg)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetMessage returns a single message by id.
func (h *MessageHandler) GetMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}
