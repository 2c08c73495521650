package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"team-chat-service/internal/models"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []int) ([]models.PublicUser, error) {
	args := m.Called(ctx, ids)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SearchUsers(ctx context.Context, query string, excludeID int, limit int) ([]models.PublicUser, error) {
	args := m.Called(ctx, query, excludeID, limit)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) SetOnline(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetOffline(ctx context.Context, userID int, lastSeen time.Time) error {
	args := m.Called(ctx, userID, lastSeen)
	return args.Error(0)
}

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, name, description string, isPrivate bool, createdBy int) (models.Channel, error) {
	args := m.Called(ctx, name, description, isPrivate, createdBy)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var channel models.Channel
	if val := args.Get(0); val != nil {
		channel = val.(models.Channel)
	}
	return channel, args.Error(1)
}

func (m *ChannelRepositoryMock) ListChannels(ctx context.Context) ([]models.Channel, error) {
	args := m.Called(ctx)
	var channels []models.Channel
	if val := args.Get(0); val != nil {
		channels = val.([]models.Channel)
	}
	return channels, args.Error(1)
}

func (m *ChannelRepositoryMock) ListMembers(ctx context.Context, channelID int) ([]models.PublicUser, error) {
	args := m.Called(ctx, channelID)
	var members []models.PublicUser
	if val := args.Get(0); val != nil {
		members = val.([]models.PublicUser)
	}
	return members, args.Error(1)
}

func (m *ChannelRepositoryMock) IsMember(ctx context.Context, channelID int, userID int) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChannelRepositoryMock) AddMember(ctx context.Context, channelID int, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) RemoveMember(ctx context.Context, channelID int, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, channelID int, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, channelID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetChannelMessages(ctx context.Context, channelID int, page int, limit int) (models.MessagePage, error) {
	args := m.Called(ctx, channelID, page, limit)
	var result models.MessagePage
	if val := args.Get(0); val != nil {
		result = val.(models.MessagePage)
	}
	return result, args.Error(1)
}

type FriendRepositoryMock struct {
	mock.Mock
}

func (m *FriendRepositoryMock) CreateRequest(ctx context.Context, fromID int, toID int) error {
	args := m.Called(ctx, fromID, toID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) AcceptRequest(ctx context.Context, userID int, fromID int) error {
	args := m.Called(ctx, userID, fromID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) RejectRequest(ctx context.Context, userID int, fromID int) error {
	args := m.Called(ctx, userID, fromID)
	return args.Error(0)
}

func (m *FriendRepositoryMock) PendingRequests(ctx context.Context, userID int) ([]models.FriendRequestSummary, error) {
	args := m.Called(ctx, userID)
	var requests []models.FriendRequestSummary
	if val := args.Get(0); val != nil {
		requests = val.([]models.FriendRequestSummary)
	}
	return requests, args.Error(1)
}

func (m *FriendRepositoryMock) AreFriends(ctx context.Context, userID int, friendID int) (bool, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendRepositoryMock) ListFriends(ctx context.Context, userID int) ([]models.PublicUser, error) {
	args := m.Called(ctx, userID)
	var friends []models.PublicUser
	if val := args.Get(0); val != nil {
		friends = val.([]models.PublicUser)
	}
	return friends, args.Error(1)
}

type DirectMessageRepositoryMock struct {
	mock.Mock
}

func (m *DirectMessageRepositoryMock) CreateOrGetConversation(ctx context.Context, userID int, otherID int) (models.Conversation, error) {
	args := m.Called(ctx, userID, otherID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *DirectMessageRepositoryMock) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *DirectMessageRepositoryMock) ListConversations(ctx context.Context, userID int) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *DirectMessageRepositoryMock) CreateDirectMessage(ctx context.Context, conversationID int, senderID int, content string) (models.DirectMessage, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.DirectMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.DirectMessage)
	}
	return msg, args.Error(1)
}

func (m *DirectMessageRepositoryMock) ListMessages(ctx context.Context, conversationID int) ([]models.DirectMessage, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.DirectMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.DirectMessage)
	}
	return msgs, args.Error(1)
}

func (m *DirectMessageRepositoryMock) UnreadCount(ctx context.Context, conversationID int, userID int) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *DirectMessageRepositoryMock) MarkRead(ctx context.Context, conversationID int, userID int) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}
