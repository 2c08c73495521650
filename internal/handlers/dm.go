package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"team-chat-service/internal/models"
	"team-chat-service/internal/repositories"
	"team-chat-service/internal/ws"
)

// DMHandler manages direct-message conversations. Sends ping the other
// participant's live connections so clients can refresh without polling.
type DMHandler struct {
	dmRepo     repositories.DirectMessageRepository
	friendRepo repositories.FriendRepository
	userRepo   repositories.UserRepository
	hub        *ws.Hub
}

func NewDMHandler(dmRepo repositories.DirectMessageRepository, friendRepo repositories.FriendRepository, userRepo repositories.UserRepository, hub *ws.Hub) *DMHandler {
	return &DMHandler{dmRepo: dmRepo, friendRepo: friendRepo, userRepo: userRepo, hub: hub}
}

// StartConversation opens or returns the thread with another user.
func (h *DMHandler) StartConversation(c *gin.Context) {
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	friends, err := h.friendRepo.AreFriends(c.Request.Context(), userID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not validate friendship"})
		return
	}
	if !friends {
		c.JSON(http.StatusForbidden, gin.H{"error": "users are not friends"})
		return
	}

	conv, err := h.dmRepo.CreateOrGetConversation(c.Request.Context(), userID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

// ListConversations returns the caller's threads with unread counts.
func (h *DMHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	convs, err := h.dmRepo.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversations"})
		return
	}

	otherIDs := make([]int, 0, len(convs))
	for _, conv := range convs {
		otherIDs = append(otherIDs, otherParticipant(conv, userID))
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), otherIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load participants"})
		return
	}
	byID := make(map[int]models.PublicUser, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		unread, err := h.dmRepo.UnreadCount(c.Request.Context(), conv.ID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count unread"})
			return
		}
		summaries = append(summaries, models.ConversationSummary{
			ConversationID: conv.ID,
			Participant:    byID[otherParticipant(conv, userID)],
			LastMessage:    conv.LastMessage,
			LastMessageAt:  conv.LastMessageAt,
			UnreadCount:    unread,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// SendMessage persists a direct message and pings the recipient.
func (h *DMHandler) SendMessage(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
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
	conv, err := h.loadParticipantConversation(c, conversationID, userID)
	if err != nil {
		return
	}

	msg, err := h.dmRepo.CreateDirectMessage(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save message"})
		return
	}

	other := otherParticipant(conv, userID)
	_ = h.hub.SendToUser(other, ws.EventDMSend, ws.UserTargetedPayload{To: other, From: userID})

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetMessages returns the conversation history and marks it read.
func (h *DMHandler) GetMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt("userID")
	conv, err := h.loadParticipantConversation(c, conversationID, userID)
	if err != nil {
		return
	}

	messages, err := h.dmRepo.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load messages"})
		return
	}

	if err := h.dmRepo.MarkRead(c.Request.Context(), conversationID, userID); err == nil {
		other := otherParticipant(conv, userID)
		_ = h.hub.SendToUser(other, ws.EventDMRead, ws.UserTargetedPayload{To: other, From: userID})
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *DMHandler) loadParticipantConversation(c *gin.Context, conversationID, userID int) (models.Conversation, error) {
	conv, err := h.dmRepo.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return conv, err
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return conv, err
	}
	if conv.User1ID != userID && conv.User2ID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return conv, errors.New("not a participant")
	}
	return conv, nil
}

func otherParticipant(conv models.Conversation, userID int) int {
	if conv.User1ID == userID {
		return conv.User2ID
	}
	return conv.User1ID
}
