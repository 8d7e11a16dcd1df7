// Command realtime-tail connects to the real-time server, subscribes to the
// configured articles and logs every pushed event. It serves /health,
// /status and /metrics while running.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Prescott-Data/nexus-realtime/internal/config"
	"github.com/Prescott-Data/nexus-realtime/internal/server"
	"github.com/Prescott-Data/nexus-realtime/realtime"
	"github.com/Prescott-Data/nexus-realtime/realtime/credentials"
	"github.com/Prescott-Data/nexus-realtime/realtime/telemetry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	var configPath string
	var instanceID string
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (optional)")
	flag.StringVar(&instanceID, "instance", "", "Instance ID used as a metrics label (default: random)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	logger := telemetry.NewLoggerTo(os.Stdout, cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := credentialStore(ctx, cfg.Credentials)
	if err != nil {
		log.Fatalf("Failed to set up credentials: %v", err)
	}
	defer closeStore()

	subs := &subscriber{articles: cfg.Articles}
	client, err := realtime.NewStandard(cfg.Client.Endpoint, store,
		map[string]string{"instance_id": instanceID},
		realtime.WithLogger(logger),
		realtime.WithStateHandler(subs.stateChanged),
		realtime.WithReconnectPolicy(realtime.ReconnectPolicy{
			BaseDelay:   cfg.Client.ReconnectDelay,
			MaxAttempts: cfg.Client.MaxReconnectAttempts,
		}),
		realtime.WithHeartbeatInterval(cfg.Client.HeartbeatInterval),
		realtime.WithWriteTimeout(cfg.Client.WriteTimeout),
		realtime.WithHandshakeTimeout(cfg.Client.HandshakeTimeout),
		realtime.WithMessageSizeLimit(cfg.Client.MessageSizeLimit),
	)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	subs.client = client
	registerHandlers(client, logger)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.NewServer(cfg.Server.Port, client, logger.Slog(),
			server.WithMetrics(telemetry.Handler()),
			server.WithAPIKeys(cfg.Server.APIKeys...),
			server.WithCORSOrigins(cfg.Server.CORSOrigins...),
		)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error(err, "Status server stopped")
				stop()
			}
		}()
	}

	logger.Info("Starting realtime-tail", "instance_id", instanceID, "endpoint", telemetry.RedactQuery(cfg.Client.Endpoint))
	client.Connect()

	<-ctx.Done()
	logger.Info("Shutting down")
	_ = client.Close()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "Status server shutdown failed")
		}
	}
}

func credentialStore(ctx context.Context, cfg config.CredentialsConfig) (realtime.CredentialStore, func(), error) {
	noop := func() {}
	switch cfg.Source {
	case config.SourceStatic:
		return credentials.Static(cfg.Token), noop, nil
	case config.SourceFile:
		return credentials.NewFileStore(cfg.File), noop, nil
	case config.SourceRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return credentials.NewRedisStore(rdb, cfg.Redis.Key), func() { _ = rdb.Close() }, nil
	case config.SourceOAuth2:
		store := credentials.NewClientCredentialsStore(ctx, cfg.OAuth2.ClientID, cfg.OAuth2.ClientSecret,
			cfg.OAuth2.TokenURL, cfg.OAuth2.Scopes...)
		return store, noop, nil
	case config.SourceNone, "":
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown credentials source %q", cfg.Source)
	}
}

// registerHandlers logs every inbound event, with details for the common ones.
func registerHandlers(client *realtime.Client, logger *telemetry.SlogLogger) {
	for _, t := range realtime.InboundEventTypes {
		eventType := t
		client.On(eventType, realtime.HandleFunc(func(payload json.RawMessage) error {
			logger.Info("Event received", "type", string(eventType), "bytes", len(payload))
			return nil
		}))
	}

	client.On(realtime.EventNotification, realtime.Typed(func(p realtime.NotificationPayload) error {
		logger.Info("Notification", "id", p.ID, "kind", p.Type, "title", p.Title)
		return nil
	}))
	client.On(realtime.EventNewComment, realtime.Typed(func(p realtime.NewCommentPayload) error {
		logger.Info("New comment", "articleId", p.ArticleID, "author", p.Comment.Author.Username)
		return nil
	}))
	client.On(realtime.EventOnlineCount, realtime.Typed(func(p realtime.OnlineCountPayload) error {
		logger.Info("Online users", "count", p.Count)
		return nil
	}))
	client.On(realtime.EventAchievementUnlock, realtime.Typed(func(p realtime.AchievementPayload) error {
		logger.Info("Achievement unlocked", "name", p.Name, "points", p.Points)
		return nil
	}))
}

// articleSubscriber is the part of *realtime.Client a subscriber needs.
type articleSubscriber interface {
	SubscribeArticle(articleID string)
}

// subscriber re-sends article subscriptions each time the connection becomes
// open, since the server forgets them when a connection drops.
type subscriber struct {
	client   articleSubscriber
	articles []string
}

func (s *subscriber) stateChanged(_, next realtime.State) {
	if next != realtime.Open || s.client == nil {
		return
	}
	for _, id := range s.articles {
		s.client.SubscribeArticle(id)
	}
}
