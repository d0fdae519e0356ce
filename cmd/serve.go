package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/brokers"
	"messenger-service/internal/db"
	grpcserver "messenger-service/internal/grpc"
	"messenger-service/internal/handlers"
	"messenger-service/internal/jobs"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/provider"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/services"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP, websocket and gRPC health servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTelEndpoint)
	if err != nil {
		log.Printf("tracing disabled err=%v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	log.Printf("rabbitmq publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	auditor := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	registry := provider.FromConfig(cfg.Providers)

	providerRepo := repositories.NewProviderRepo(database)
	threadRepo := repositories.NewThreadRepo(database)
	participantRepo := repositories.NewParticipantRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	friendRepo := repositories.NewFriendRepo(database)
	inviteRepo := repositories.NewInviteRepo(database)

	hub := ws.NewHub()

	brokerRegistry := brokers.NewRegistry()
	brokerRegistry.Register(brokers.Broadcasting, brokers.DriverDefault, brokers.NewSocketBroker(hub))
	brokerRegistry.Register(brokers.PushNotifications, brokers.DriverDefault, brokers.NewPushBroker(publisher, registry))
	brokerRegistry.Register(brokers.Calling, brokers.DriverDefault, brokers.NewCallBroker(publisher))
	dispatcher := brokers.NewDispatcher(brokerRegistry, brokers.SelectionFromConfig(cfg), cfg.Broker.Workers, cfg.Broker.QueueSize)
	for _, c := range brokers.Categories {
		log.Printf("broker resolved category=%s driver=%s", c, dispatcher.Driver(c))
	}

	presence := services.NewPresenceService(cfg.OnlineStatus)
	resolver := services.NewParticipantResolver(providerRepo, participantRepo, friendRepo, registry, dispatcher, cfg.Participants.RequireFriendship)
	pipeline := services.NewMessagePipeline(messageRepo, participantRepo, dispatcher, cfg)
	threads := services.NewThreadService(threadRepo, participantRepo, providerRepo, registry, resolver, pipeline, dispatcher, auditor, cfg)
	friends := services.NewFriendService(friendRepo, providerRepo, registry, dispatcher)
	invites := services.NewInviteService(inviteRepo, threadRepo, participantRepo, registry, dispatcher, auditor, cfg.Invites)
	knocks := services.NewKnockService(participantRepo, dispatcher, cfg.Knocks)
	calls := services.NewCallService(messageRepo, participantRepo, dispatcher, cfg.Calling)
	search := services.NewSearchService(providerRepo, registry, cfg.Collections.SearchPageCount)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(providerRepo, registry)
	handlers.RegisterRoutes(router, auth, handlers.Handlers{
		Threads:      handlers.NewThreadHandler(threads, presence),
		Messages:     handlers.NewMessageHandler(threads, pipeline),
		Friends:      handlers.NewFriendHandler(friends),
		Invites:      handlers.NewInviteHandler(threads, invites),
		Interactions: handlers.NewInteractionHandler(threads, knocks, calls, presence, search),
	})
	socket := ws.NewWebSocketHandler(hub, providerRepo, registry, presence)
	router.GET("/ws", socket.Handle)
	handlers.RegisterDebugRoutes(router.Group("/", auth), auditor, dispatcher, cfg.DebugRoutes)

	health := grpcserver.NewServer(map[string]grpcserver.Check{
		"database": database.PingContext,
	})
	health.Refresh(ctx)

	sweeper, err := jobs.NewInviteSweeper(inviteRepo, cfg.Jobs.InviteSweepCron)
	if err != nil {
		return err
	}
	sweeper.Start(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 2)
	go func() {
		log.Printf("http server listening port=%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			errs <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		log.Printf("grpc health server listening port=%s", cfg.GRPCPort)
		if err := health.Serve(lis); err != nil {
			errs <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutdown requested")
	case err = <-errs:
		log.Printf("server failed err=%v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("http shutdown err=%v", shutdownErr)
	}
	health.Stop()
	dispatcher.Close()
	if closeErr := publisher.Close(); closeErr != nil {
		log.Printf("publisher close err=%v", closeErr)
	}
	if traceErr := shutdownTracing(shutdownCtx); traceErr != nil {
		log.Printf("tracing shutdown err=%v", traceErr)
	}
	return err
}
