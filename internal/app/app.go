// Package app wires configuration, storage backends, services and transports
// into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lessonplayer/internal/cache"
	"lessonplayer/internal/catalog"
	"lessonplayer/internal/config"
	"lessonplayer/internal/event"
	"lessonplayer/internal/metrics"
	"lessonplayer/internal/repository"
	"lessonplayer/internal/service"
	"lessonplayer/internal/tracker"
	"lessonplayer/internal/transport/natsbus"
	"lessonplayer/internal/transport/rest"
	"lessonplayer/internal/transport/ws"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// App holds every long-lived dependency of the server
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Auth      *service.AuthService
	Analytics *service.AnalyticsService
	History   *service.HistoryService
	Gateway   *service.InteractionGateway
	Lessons   *service.LessonService
	Hub       *ws.Hub

	mongoClient *mongo.Client
	rdb         *redis.Client
	natsConn    *nats.Conn
	events      *event.Publisher
}

// New connects the enabled backends and builds the services. Backends that
// are disabled in cfg fall back to in-memory or mock implementations.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}
	if err := a.connect(ctx); err != nil {
		a.closeClients(ctx)
		return nil, err
	}
	if err := a.build(ctx); err != nil {
		a.closeClients(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	if cfg.Mongo.Enabled {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("connect to MongoDB: %w", err)
		}
		a.mongoClient = client

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			return fmt.Errorf("ping MongoDB: %w", err)
		}
		a.Log.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.Database))
	}

	if cfg.Redis.Enabled {
		// Remove redis:// prefix if present
		addr := strings.TrimPrefix(cfg.Redis.Addr, "redis://")
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := a.rdb.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("ping Redis: %w", err)
		}
		a.Log.Info("Connected to Redis", zap.String("addr", addr))
	}

	if cfg.NATS.Enabled {
		conn, err := natsbus.Connect(cfg.NATS.URL, "lessonplayer", a.Log)
		if err != nil {
			return err
		}
		a.natsConn = conn
		a.Log.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	if cfg.AMQP.Enabled {
		pub, err := event.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, a.Log)
		if err != nil {
			return err
		}
		a.events = pub
		a.Log.Info("Connected to RabbitMQ", zap.String("exchange", cfg.AMQP.Exchange))
	}
	return nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	a.Auth = service.NewAuthService(service.AuthConfig{
		HostUsername: cfg.Auth.HostUsername,
		HostPassword: cfg.Auth.HostPassword,
		JWTSecret:    cfg.Auth.JWTSecret,
		LearnerTTL:   cfg.Auth.LearnerTTL,
	})

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		loaded, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		cat = loaded
		a.Log.Info("Slide catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("modules", len(cat.Modules)))
	}

	var (
		savers         service.MultiSaver
		completions    repository.CompletionRepo
		completionMark cache.CompletionCache
		store          tracker.InteractionStore
	)

	if a.mongoClient != nil {
		db := a.mongoClient.Database(cfg.Mongo.Database)
		slides := repository.NewSlideRecordRepo(db)
		completions = repository.NewCompletionRepo(db)

		idxCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := errors.Join(slides.EnsureIndexes(idxCtx), completions.EnsureIndexes(idxCtx)); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		savers = append(savers, service.RepositorySaver{Repo: slides})
		a.History = service.NewHistoryService(slides, completions)
	}

	if a.rdb != nil {
		store = cache.NewInteractionCache(a.rdb, cfg.Tracking.InteractionTTL)
		completionMark = cache.NewCompletionCache(a.rdb)
		a.Analytics = service.NewAnalyticsService(cache.NewAnalyticsCache(a.rdb))
		savers = append(savers, a.Analytics)
	}

	if a.events != nil {
		savers = append(savers, a.events)
	}

	var saver service.InteractionSaver = savers
	if len(savers) == 0 {
		a.Log.Info("No persistence backend enabled, using mock saver")
		saver = service.MockSaver{Delay: cfg.Tracking.MockSaveDelay, Log: a.Log}
	}

	a.Gateway = service.NewInteractionGateway(saver, service.GatewayConfig{
		MinDwell:    cfg.Tracking.MinDwell,
		SaveTimeout: cfg.Tracking.SaveTimeout,
	}, a.Log, a.Metrics)

	var syncer service.Syncer = service.MockSyncer{}
	if cfg.Completion.Syncer == "store" {
		var announcer service.CompletionAnnouncer
		if a.events != nil {
			announcer = a.events
		}
		syncer = service.NewCompletionSyncer(completionMark, completions, announcer, nil, a.Log)
	}

	a.Lessons = service.NewLessonService(service.LessonConfig{
		Completion: service.CompletionConfig{
			EntryDelay:          cfg.Completion.EntryDelay,
			AutoReturnDelay:     cfg.Completion.AutoReturnDelay,
			SyncTimeout:         cfg.Completion.SyncTimeout,
			SyncMaxRetries:      cfg.Completion.SyncMaxRetries,
			SyncInitialInterval: cfg.Completion.SyncInitialInterval,
		},
		SlideMaxAge: cfg.Tracking.SlideMaxAge,
	}, service.LessonDeps{
		Catalog: cat,
		Store:   store,
		Gateway: a.Gateway,
		Syncer:  syncer,
		Logger:  a.Log,
		Metrics: a.Metrics,
	})

	// Host channels: WebSocket always, NATS when enabled
	a.Hub = ws.NewHub(a.Log)
	channels := []service.HostChannel{a.Hub}
	if a.natsConn != nil {
		channels = append(channels, natsbus.NewNotifier(a.natsConn, cfg.NATS.SubjectPrefix, a.Log))
	}
	a.Lessons.SetNotifierFactory(service.ChannelFactory(a.Metrics, channels...))

	return nil
}

// Router builds the HTTP handler
func (a *App) Router() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:      a.Auth,
		LessonService:    a.Lessons,
		AnalyticsService: a.Analytics,
		HistoryService:   a.History,
		WSHub:            a.Hub,
		WSOrigins:        a.Config.Server.HostOrigins,
		CORS:             rest.CORSConfig{AllowedOrigins: a.Config.Server.CORSOrigins},
		Metrics:          promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		Logger:           a.Log,
	})
}

// RunSweeper finalizes abandoned slides every interval until ctx is done
func (a *App) RunSweeper(ctx context.Context) {
	interval := a.Config.Tracking.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Lessons.SweepAbandoned(ctx)
		}
	}
}

// Close flushes open slides, waits for saves and disconnects every backend
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.Lessons != nil {
		err = a.Lessons.Shutdown(ctx)
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	a.closeClients(ctx)
	return err
}

func (a *App) closeClients(ctx context.Context) {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.Log.Warn("NATS drain failed", zap.Error(err))
		}
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.Log.Warn("Redis close failed", zap.Error(err))
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.Log.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}
}
