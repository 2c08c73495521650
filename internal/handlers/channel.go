package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"team-chat-service/internal/models"
	"team-chat-service/internal/repositories"
	"team-chat-service/internal/telemetry"
)

// ChannelHandler manages channel CRUD and membership endpoints.
type ChannelHandler struct {
	channelRepo repositories.ChannelRepository
	audit       *telemetry.AuditEmitter
}

func NewChannelHandler(channelRepo repositories.ChannelRepository, audit *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{channelRepo: channelRepo, audit: audit}
}

// CreateChannel creates a channel with the caller as first member.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,min=1,max=64"`
		Description string `json:"description" binding:"max=256"`
		IsPrivate   bool   `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	channel, err := h.channelRepo.CreateChannel(c.Request.Context(), req.Name, req.Description, req.IsPrivate, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "channel name already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create channel"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "channel created", requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

// ListChannels returns every channel. Private channels stay listed; only
// their history is membership-gated.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.channelRepo.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// GetChannel returns one channel with its members.
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	channel, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load channel"})
		return
	}

	members, err := h.channelRepo.ListMembers(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel": models.ChannelDetail{Channel: channel, Members: members}})
}

// JoinChannel makes the caller a member.
func (h *ChannelHandler) JoinChannel(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.channelRepo.AddMember(c.Request.Context(), channelID, userID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		case errors.Is(err, repositories.ErrAlreadyMember):
			c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join channel"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// LeaveChannel removes the caller from the member list.
func (h *ChannelHandler) LeaveChannel(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := c.GetInt("userID")
	if err := h.channelRepo.RemoveMember(c.Request.Context(), channelID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave channel"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}
