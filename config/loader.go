package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"healthwatch/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig reads the YAML file at path, overlays environment variables
// (dots become underscores, so notification.slack.webhook_url is read from
// NOTIFICATION_SLACK_WEBHOOK_URL) and validates the result.
func LoadConfig(path string) (*Config, error) {
	const op string = "config.loader.load"

	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// default first
	setDefaults(v)
	bindLegacyEnv(v)

	// File Config
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Env Config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read File
	if err := v.ReadInConfig(); err != nil {
		return nil, apperror.New(apperror.InvalidInput, op, fmt.Errorf("read config: %w", err)).
			WithMessage("configuration file could not be read")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.InvalidInput, op, fmt.Errorf("unmarshal config: %w", err)).
			WithMessage("configuration has invalid values")
	}

	applyTargetDefaults(&cfg)

	// Validate
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("service_name", "healthwatch")

	v.SetDefault("monitoring.check_interval", "20s")
	v.SetDefault("monitoring.failure_threshold", 2)
	v.SetDefault("monitoring.default_timeout", "10s")
	v.SetDefault("monitoring.max_concurrency", 16)
	v.SetDefault("monitoring.user_agent", "healthwatch/1.0")

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.incidents_dir", "data/incidents")
	v.SetDefault("storage.sqlite_path", "data/incidents.db")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.conn_max_lifetime", "2m")
	v.SetDefault("redis.conn_max_idle_time", "30s")
	v.SetDefault("redis.publish_status", false)

	v.SetDefault("db.url", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.min_idle_conns", 1)
	v.SetDefault("db.conn_max_lifetime", "1h")
	v.SetDefault("db.conn_max_idle_time", "30m")
	v.SetDefault("db.health_timeout", "5s")

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.channels", []string{ChannelSlack})
	v.SetDefault("notification.mention_channel", true)
	v.SetDefault("notification.startup_check", false)
	v.SetDefault("notification.cooldown", "5m")
	v.SetDefault("notification.send_timeout", "10s")
	v.SetDefault("notification.queue_size", 100)
	v.SetDefault("notification.workers", 2)

	// secrets default to empty so env overrides are picked up by Unmarshal
	v.SetDefault("notification.slack.webhook_url", "")
	v.SetDefault("notification.slack.channel", "")
	v.SetDefault("notification.slack.username", "healthwatch")
	v.SetDefault("notification.telegram.token", "")
	v.SetDefault("notification.telegram.chat_id", 0)
	v.SetDefault("notification.telegram.server_url", "")
	v.SetDefault("notification.email.host", "")
	v.SetDefault("notification.email.port", 587)
	v.SetDefault("notification.email.username", "")
	v.SetDefault("notification.email.password", "")
	v.SetDefault("notification.email.from", "")

	v.SetDefault("rabbitmq.broker_link", "")
	v.SetDefault("rabbitmq.exchange_name", "healthwatch.alerts")
	v.SetDefault("rabbitmq.exchange_type", "topic")
	v.SetDefault("rabbitmq.queue_name", "")
	v.SetDefault("rabbitmq.routing_key", "alerts")

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file", "")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.addr", ":8080")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.expiry_min", 60)
}

// bindLegacyEnv keeps the short variable names operators already export.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("notification.slack.webhook_url", "NOTIFICATION_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("notification.slack.channel", "NOTIFICATION_SLACK_CHANNEL", "SLACK_CHANNEL")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("db.url", "DB_URL", "DATABASE_URL")
}

func applyTargetDefaults(cfg *Config) {
	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Method == "" {
			t.Method = http.MethodGet
		}
		t.Method = strings.ToUpper(t.Method)
		if t.ExpectedStatus == 0 {
			t.ExpectedStatus = http.StatusOK
		}
		if t.Timeout == 0 {
			t.Timeout = cfg.Monitoring.DefaultTimeout
		}
	}
}

func validateConfig(cfg *Config) error {
	const op string = "config.loader.validate"

	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(op, ve)
		}
		return apperror.New(apperror.InvalidInput, op, err)
	}

	return validateSemantics(op, cfg)
}

// validateSemantics covers cross-section requirements the struct tags cannot
// express.
func validateSemantics(op string, cfg *Config) error {
	var problems []string

	switch cfg.Storage.Driver {
	case StorageRedis:
		if cfg.Redis.URL == "" {
			problems = append(problems, "storage.driver=redis requires redis.url")
		}
	case StoragePostgres:
		if cfg.DB.URL == "" {
			problems = append(problems, "storage.driver=postgres requires db.url")
		}
	}

	if cfg.Redis.PublishStatus && cfg.Redis.URL == "" {
		problems = append(problems, "redis.publish_status requires redis.url")
	}

	n := cfg.Notification
	if n.Enabled && len(n.Channels) == 0 {
		problems = append(problems, "notification.enabled requires at least one notification.channels entry")
	}
	if n.Uses(ChannelSlack) && n.Slack.WebhookURL == "" {
		problems = append(problems, "slack channel requires notification.slack.webhook_url")
	}
	if n.Uses(ChannelTelegram) && (n.Telegram.Token == "" || n.Telegram.ChatID == 0) {
		problems = append(problems, "telegram channel requires notification.telegram.token and chat_id")
	}
	if n.Uses(ChannelEmail) && (n.Email.Host == "" || n.Email.From == "" || len(n.Email.To) == 0) {
		problems = append(problems, "email channel requires notification.email.host, from and to")
	}
	if n.Uses(ChannelAMQP) && (cfg.RabbitMQ.BrokerLink == "" || cfg.RabbitMQ.ExchangeName == "") {
		problems = append(problems, "amqp channel requires rabbitmq.broker_link and exchange_name")
	}

	if len(problems) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, p := range problems {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	return apperror.Newf(apperror.InvalidInput, op, "%s", sb.String())
}

func formatValidationErrors(op string, ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")

	for _, fe := range ve {
		if fe.Param() != "" {
			fmt.Fprintf(&sb, "- field '%s' failed on '%s=%s'\n", fe.Namespace(), fe.Tag(), fe.Param())
			continue
		}
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return apperror.Newf(apperror.InvalidInput, op, "%s", sb.String())
}
