package config

import "time"

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Env          string             `mapstructure:"env" validate:"required"`
	ServiceName  string             `mapstructure:"service_name" validate:"required"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Targets      []TargetConfig     `mapstructure:"targets" validate:"required,min=1,unique=Name,dive"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Redis        RedisConfig        `mapstructure:"redis"`
	DB           DBConfig           `mapstructure:"db"`
	Notification NotificationConfig `mapstructure:"notification"`
	RabbitMQ     RabbitMQConfig     `mapstructure:"rabbitmq"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	API          APIConfig          `mapstructure:"api"`
	Auth         AuthConfig         `mapstructure:"auth"`
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

type MonitoringConfig struct {
	CheckInterval    time.Duration `mapstructure:"check_interval" validate:"min=1s"`
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"min=1"`
	DefaultTimeout   time.Duration `mapstructure:"default_timeout" validate:"min=100ms"`
	MaxConcurrency   int           `mapstructure:"max_concurrency" validate:"min=1"`
	UserAgent        string        `mapstructure:"user_agent"`
}

// TargetConfig is one monitored endpoint. Zero values are filled in by
// applyTargetDefaults after unmarshalling.
type TargetConfig struct {
	Name           string        `mapstructure:"name" validate:"required"`
	URL            string        `mapstructure:"url" validate:"required,url"`
	Method         string        `mapstructure:"method" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	ExpectedStatus int           `mapstructure:"expected_status" validate:"omitempty,min=100,max=599"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"omitempty,min=100ms"`
	Critical       *bool         `mapstructure:"critical"`
}

// IsCritical treats an unset flag as critical.
func (t TargetConfig) IsCritical() bool {
	return t.Critical == nil || *t.Critical
}
