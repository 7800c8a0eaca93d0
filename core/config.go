package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

type PollingConfig struct {
	Interval  time.Duration `koanf:"interval" mapstructure:"interval"`
	BatchSize int           `koanf:"batch_size" mapstructure:"batch_size"`
}

type Config struct {
	ServiceName    string        `koanf:"service_name" mapstructure:"service_name"`
	Environment    string        `koanf:"environment" mapstructure:"environment"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	Polling        PollingConfig `koanf:"polling" mapstructure:"polling"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "custody",
		Environment:    EnvironmentProduction,
		RequestTimeout: 30 * time.Second,
		Polling: PollingConfig{
			Interval:  30 * time.Second,
			BatchSize: 50,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.TrimSpace(c.Environment) {
	case EnvironmentProduction, EnvironmentDevelopment:
	default:
		return fmt.Errorf("core: environment must be %q or %q", EnvironmentProduction, EnvironmentDevelopment)
	}
	return nil
}

// Strict reports whether unknown custodians are rejected and internal
// submission errors are replaced with an opaque message.
func (c Config) Strict() bool {
	return strings.TrimSpace(c.Environment) != EnvironmentDevelopment
}
