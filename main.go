package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"team-chat-service/internal/auth"
	"team-chat-service/internal/db"
	"team-chat-service/internal/handlers"
	"team-chat-service/internal/middleware"
	"team-chat-service/internal/observability"
	"team-chat-service/internal/rabbitmq"
	"team-chat-service/internal/repositories"
	"team-chat-service/internal/telemetry"
	"team-chat-service/internal/ws"
)

const serviceName = "team-chat-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, getEnv("OTLP_GRPC_ADDR", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	amqpURL := getEnv("AMQP_URL", "")
	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "team_chat.events"))
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.team_chat", serviceName, getEnv("ENVIRONMENT", "dev"))

	if amqpURL != "" {
		wsPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("AMQP_WS_EXCHANGE", "ws_events"))
		if err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(wsPublisher)
			defer wsPublisher.Close()
		}
	}

	tokens := auth.NewTokenManager(getEnv("JWT_SECRET", "dev-secret-change-me"), 24*time.Hour)

	userRepo := repositories.NewUserRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	friendRepo := repositories.NewFriendRepo(database)
	dmRepo := repositories.NewDirectMessageRepo(database)

	hub := ws.NewHub()
	registry := ws.NewRegistry()
	relay := ws.NewCallRelay(hub)
	gateway := ws.NewGateway(hub, registry, relay, userRepo, channelRepo, messageRepo, tokens)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, audit)
	channelHandler := handlers.NewChannelHandler(channelRepo, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, channelRepo, hub)
	friendHandler := handlers.NewFriendHandler(friendRepo, hub, audit)
	dmHandler := handlers.NewDMHandler(dmRepo, friendRepo, userRepo, hub)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, registry, getEnv("DEBUG_ROUTES", "") == "1")

	authMiddleware := middleware.AuthMiddleware(tokens)

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", authMiddleware, authHandler.Me)
		api.GET("/users/search", authMiddleware, authHandler.SearchUsers)

		api.POST("/channels", authMiddleware, channelHandler.CreateChannel)
		api.GET("/channels", authMiddleware, channelHandler.ListChannels)
		api.GET("/channels/:channel_id", authMiddleware, channelHandler.GetChannel)
		api.POST("/channels/:channel_id/join", authMiddleware, channelHandler.JoinChannel)
		api.POST("/channels/:channel_id/leave", authMiddleware, channelHandler.LeaveChannel)

		api.GET("/messages/:channel_id", authMiddleware, messageHandler.GetChannelMessages)
		api.POST("/messages/:channel_id", authMiddleware, messageHandler.PostMessage)
		api.GET("/message/:message_id", authMiddleware, messageHandler.GetMessage)

		api.POST("/friends/request", authMiddleware, friendHandler.SendRequest)
		api.POST("/friends/accept", authMiddleware, friendHandler.AcceptRequest)
		api.POST("/friends/reject", authMiddleware, friendHandler.RejectRequest)
		api.GET("/friends/pending", authMiddleware, friendHandler.PendingRequests)
		api.GET("/friends", authMiddleware, friendHandler.ListFriends)

		api.POST("/dm/start", authMiddleware, dmHandler.StartConversation)
		api.GET("/dm", authMiddleware, dmHandler.ListConversations)
		api.POST("/dm/:conversation_id/messages", authMiddleware, dmHandler.SendMessage)
		api.GET("/dm/:conversation_id/messages", authMiddleware, dmHandler.GetMessages)
	}

	router.GET("/ws", gateway.Handle)

	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8083"),
		Handler: router,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
