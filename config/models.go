package config

import "time"

const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	ChannelSlack    = "slack"
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelAMQP     = "amqp"
)

type StorageConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=file sqlite redis postgres memory"`
	IncidentsDir string `mapstructure:"incidents_dir" validate:"required_if=Driver file"`
	SQLitePath   string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
}

type RedisConfig struct {
	URL             string        `mapstructure:"url" validate:"omitempty,url"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PublishStatus   bool          `mapstructure:"publish_status"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout"`
}

type NotificationConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Channels       []string       `mapstructure:"channels" validate:"dive,oneof=slack telegram email amqp"`
	MentionChannel bool           `mapstructure:"mention_channel"`
	StartupCheck   bool           `mapstructure:"startup_check"`
	Cooldown       time.Duration  `mapstructure:"cooldown" validate:"min=0"`
	SendTimeout    time.Duration  `mapstructure:"send_timeout" validate:"min=1s"`
	QueueSize      int            `mapstructure:"queue_size" validate:"min=1"`
	Workers        int            `mapstructure:"workers" validate:"min=1"`
	Slack          SlackConfig    `mapstructure:"slack"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
	Email          EmailConfig    `mapstructure:"email"`
}

func (n NotificationConfig) Uses(channel string) bool {
	if !n.Enabled {
		return false
	}
	for _, c := range n.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

type TelegramConfig struct {
	Token     string `mapstructure:"token"`
	ChatID    int64  `mapstructure:"chat_id"`
	ServerURL string `mapstructure:"server_url"`
}

type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type RabbitMQConfig struct {
	BrokerLink   string `mapstructure:"broker_link"`
	ExchangeName string `mapstructure:"exchange_name"`
	ExchangeType string `mapstructure:"exchange_type" validate:"omitempty,oneof=direct topic fanout headers"`
	QueueName    string `mapstructure:"queue_name"`
	RoutingKey   string `mapstructure:"routing_key"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	File  string `mapstructure:"file"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

type AuthConfig struct {
	Secret    string `mapstructure:"secret"`
	ExpiryMin int    `mapstructure:"expiry_min" validate:"min=1"`
}
