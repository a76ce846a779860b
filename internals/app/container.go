package app

import (
	"context"
	"errors"
	"fmt"

	"healthwatch/config"
	middle "healthwatch/internals/middleware"
	"healthwatch/internals/modules/alert"
	"healthwatch/internals/modules/engine"
	"healthwatch/internals/modules/incident"
	"healthwatch/internals/modules/probe"
	"healthwatch/internals/modules/scheduler"
	"healthwatch/internals/modules/status"
	"healthwatch/internals/security"
	"healthwatch/pkg/db"
	"healthwatch/pkg/httpclient"
	"healthwatch/pkg/rabbitmq"
	"healthwatch/pkg/redisstore"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Container struct {
	Config *config.Config
	Logger *zerolog.Logger

	// infra, nil when not configured
	DB          *pgxpool.Pool
	RedisClient *redisstore.Client
	AMQPConn    *amqp091.Connection
	publisher   *rabbitmq.Publisher

	Store     incident.Store
	Tracker   *incident.Tracker
	Notifier  *alert.MultiNotifier
	AlertSvc  *alert.AlertService
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	TokenSvc  *security.TokenService

	statusHandler *status.Handler
	authMW        *middle.AuthMiddleware
}

// NewContainer connects the configured backends and wires every component.
// Whatever was opened before a failure is closed again.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (_ *Container, err error) {
	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	if cfg.Redis.URL != "" {
		c.RedisClient, err = redisstore.New(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info().Msg("redis client initialized")
	}

	if cfg.Storage.Driver == config.StoragePostgres {
		c.DB, err = db.ConnectToDB(ctx, &cfg.DB, logger)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}

	c.Store, err = c.newStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open incident store: %w", err)
	}
	c.Tracker = incident.NewTracker(c.Store, logger)

	c.Notifier, err = c.newNotifier(ctx)
	if err != nil {
		return nil, err
	}
	c.AlertSvc = alert.NewAlertService(alert.Options{
		Workers:     cfg.Notification.Workers,
		QueueSize:   cfg.Notification.QueueSize,
		Cooldown:    cfg.Notification.Cooldown,
		SendTimeout: cfg.Notification.SendTimeout,
	}, c.Notifier, logger)

	prober := probe.NewProber(httpclient.NewHttpClient(cfg.Monitoring.UserAgent), cfg.Monitoring.DefaultTimeout)
	c.Engine = engine.New(Targets(cfg), engine.Config{
		FailureThreshold: cfg.Monitoring.FailureThreshold,
		MaxConcurrency:   cfg.Monitoring.MaxConcurrency,
		Channel:          cfg.Notification.Slack.Channel,
		MentionChannel:   cfg.Notification.MentionChannel,
	}, prober, c.Tracker, c.AlertSvc, logger)
	if cfg.Redis.PublishStatus && c.RedisClient != nil {
		c.Engine.SetStatusRecorder(c.RedisClient)
	}
	c.Scheduler = scheduler.NewScheduler(c.Engine, cfg.Monitoring.CheckInterval, logger)

	if cfg.Auth.Secret != "" {
		c.TokenSvc, err = security.NewTokenService(&cfg.Auth)
		if err != nil {
			return nil, err
		}
		c.authMW = middle.NewAuthMiddleware(c.TokenSvc)
	}
	c.statusHandler = status.NewHandler(c.Engine, c.Tracker, c.AlertSvc)

	return c, nil
}

// newStore never returns a typed nil, so Shutdown can rely on c.Store != nil.
func (c *Container) newStore(ctx context.Context) (incident.Store, error) {
	cfg := c.Config.Storage

	switch cfg.Driver {
	case config.StorageFile:
		s, err := incident.NewFileStore(cfg.IncidentsDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageSQLite:
		s, err := incident.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageRedis:
		if c.RedisClient == nil {
			return nil, errors.New("redis storage selected without a redis client")
		}
		return incident.NewRedisStore(c.RedisClient), nil
	case config.StoragePostgres:
		s, err := incident.NewPostgresStore(ctx, c.DB, c.Logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageMemory:
		return incident.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newNotifier always includes the log channel, followed by every enabled
// external channel.
func (c *Container) newNotifier(ctx context.Context) (*alert.MultiNotifier, error) {
	n := c.Config.Notification
	notifiers := []alert.Notifier{alert.NewLogNotifier(c.Logger)}

	if n.Uses(config.ChannelSlack) {
		notifiers = append(notifiers, alert.NewSlackNotifier(n.Slack, httpclient.NewHttpClient(c.Config.Monitoring.UserAgent)))
	}
	if n.Uses(config.ChannelTelegram) {
		tg, err := alert.NewTelegramNotifier(n.Telegram)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}
	if n.Uses(config.ChannelEmail) {
		notifiers = append(notifiers, alert.NewEmailNotifier(n.Email))
	}
	if n.Uses(config.ChannelAMQP) {
		conn, err := rabbitmq.NewConnection(ctx, &c.Config.RabbitMQ, c.Logger)
		if err != nil {
			return nil, err
		}
		c.AMQPConn = conn

		if err := rabbitmq.SetupTopology(conn, &c.Config.RabbitMQ); err != nil {
			return nil, fmt.Errorf("setup rabbitmq topology: %w", err)
		}
		c.publisher, err = rabbitmq.NewPublisher(conn, c.Config.RabbitMQ.ExchangeName, c.Config.RabbitMQ.RoutingKey)
		if err != nil {
			return nil, fmt.Errorf("create rabbitmq publisher: %w", err)
		}
		notifiers = append(notifiers, alert.NewAMQPNotifier(c.publisher))
	}

	names := make([]string, 0, len(notifiers))
	for _, nt := range notifiers {
		names = append(names, nt.Name())
	}
	c.Logger.Info().Strs("channels", names).Msg("notification channels configured")

	return alert.NewMultiNotifier(notifiers...), nil
}

// Targets converts the configured targets in order.
func Targets(cfg *config.Config) []probe.Target {
	out := make([]probe.Target, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		out = append(out, probe.Target{
			Name:           t.Name,
			URL:            t.URL,
			Method:         t.Method,
			ExpectedStatus: t.ExpectedStatus,
			Timeout:        t.Timeout,
			Critical:       t.IsCritical(),
		})
	}
	return out
}

// Shutdown releases the backends. Components must already be stopped.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}
	if c.AMQPConn != nil {
		errs = append(errs, c.AMQPConn.Close())
	}
	if c.Store != nil {
		errs = append(errs, c.Store.Close())
	}
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DB != nil {
		c.DB.Close()
	}

	if err := errors.Join(errs...); err != nil {
		c.Logger.Error().Err(err).Msg("failed to release some resources")
		return err
	}
	return nil
}
