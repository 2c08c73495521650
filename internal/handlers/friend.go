package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"team-chat-service/internal/repositories"
	"team-chat-service/internal/telemetry"
	"team-chat-service/internal/ws"
)

// FriendHandler manages friend requests and the friend list. Accepted and
// rejected requests also ping the other user's live connections.
type FriendHandler struct {
	friendRepo repositories.FriendRepository
	hub        *ws.Hub
	audit      *telemetry.AuditEmitter
}

func NewFriendHandler(friendRepo repositories.FriendRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friendRepo: friendRepo, hub: hub, audit: audit}
}

// SendRequest creates a pending friend request.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
		return
	}

	if err := h.friendRepo.CreateRequest(c.Request.Context(), userID, req.UserID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyFriends):
			c.JSON(http.StatusConflict, gin.H{"error": "already friends"})
		case errors.Is(err, repositories.ErrRequestExists):
			c.JSON(http.StatusConflict, gin.H{"error": "request already sent"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send request"})
		}
		return
	}

	_ = h.hub.SendToUser(req.UserID, ws.EventFriendRequestSent, ws.UserTargetedPayload{To: req.UserID, From: userID})
	h.audit.Emit(c.Request.Context(), "INFO", "friend request sent", requestIDFromContext(c), userIDFromContext(c))

	c.JSON(http.StatusCreated, gin.H{"status": "pending"})
}

// AcceptRequest turns a pending request into a friendship.
func (h *FriendHandler) AcceptRequest(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.friendRepo.AcceptRequest(c.Request.Context(), userID, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending request"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept request"})
		return
	}

	_ = h.hub.SendToUser(req.UserID, ws.EventFriendRequestAccepted, ws.UserTargetedPayload{To: req.UserID, From: userID})

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// RejectRequest drops a pending request.
func (h *FriendHandler) RejectRequest(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.friendRepo.RejectRequest(c.Request.Context(), userID, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no pending request"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reject request"})
		return
	}

	_ = h.hub.SendToUser(req.UserID, ws.EventFriendRequestRejected, ws.UserTargetedPayload{To: req.UserID, From: userID})

	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// PendingRequests returns requests waiting on the caller.
func (h *FriendHandler) PendingRequests(c *gin.Context) {
	requests, err := h.friendRepo.PendingRequests(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListFriends returns the caller's friends.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	friends, err := h.friendRepo.ListFriends(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load friends"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}
