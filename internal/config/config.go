package config

import (
	"time"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/log"
)

type Config struct {
	Settings SettingsConfig `mapstructure:"settings"`
	Sweep    SweepConfig    `mapstructure:"sweep" validate:"required"`
	Platform PlatformConfig `mapstructure:"platform"`
}

type SettingsConfig struct {
	LogLevel     log.Level  `mapstructure:"log_level"`
	LogFormat    log.Format `mapstructure:"log_format"`
	ReporterType string     `mapstructure:"reporter" validate:"oneof=text json"`
}

// SweepConfig is read once at invocation start and immutable for its
// duration. Action has no default: a sweep that terminates a fleet must be
// asked for explicitly.
type SweepConfig struct {
	Action           domain.Action `mapstructure:"action" validate:"required,oneof=STOP TERMINATE"`
	Regions          []string      `mapstructure:"regions"`
	BatchSize        int           `mapstructure:"batch_size" validate:"min=1,max=200"`
	Concurrency      int           `mapstructure:"concurrency" validate:"min=1,max=64"`
	DispatchDeadline time.Duration `mapstructure:"dispatch_deadline" validate:"min=1s"`
	Retry            RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay" validate:"min=1ms"`
	MaxDelay    time.Duration `mapstructure:"max_delay" validate:"min=1ms"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
}

type PlatformConfig struct {
	AWS AWSPlatformConfig `mapstructure:"aws"`
}

type AWSPlatformConfig struct {
	APIRateLimitRPS int   `mapstructure:"api_rate_limit_rps"`
	PageSize        int32 `mapstructure:"page_size" validate:"min=5,max=1000"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:     log.LevelInfo,
			LogFormat:    log.FormatText,
			ReporterType: "text",
		},
		Sweep: SweepConfig{
			Regions:          nil, // empty means discover every enabled region
			BatchSize:        50,
			Concurrency:      4,
			DispatchDeadline: 45 * time.Second,
			Retry: RetryConfig{
				BaseDelay:   200 * time.Millisecond,
				MaxDelay:    5 * time.Second,
				MaxAttempts: 5,
			},
		},
		Platform: PlatformConfig{
			AWS: AWSPlatformConfig{
				APIRateLimitRPS: 20,
				PageSize:        100,
			},
		},
	}
}
