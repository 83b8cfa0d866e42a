package app

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/config"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/service"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/log"
	jsonreport "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/reporting/json"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/reporting/text"
)

func BuildApplicationFromViper(ctx context.Context, v *viper.Viper) (*Application, error) {
	cfg, err := unmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	logCfg := log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	logger.Infof(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	} else {
		logger.Debugf(ctx, "No configuration file found, using defaults/env/flags.")
	}

	if err := validateConfig(ctx, cfg, logger); err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "Configuration validated successfully")

	provLog := logger.WithFields(map[string]any{"provider": aws.ProviderTypeAWS})
	provider, err := aws.NewProvider(ctx, cfg, provLog)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize AWS provider")
	}
	provLog.Infof(ctx, "Using AWS provider")

	reporter, err := buildReporter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debugf(ctx, "Initializing sweep engine")
	engine, err := service.NewSweepEngine(
		provider, provider, reporter,
		logger.WithFields(map[string]any{"component": "engine"}),
		cfg,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize sweep engine")
	}

	logger.Infof(ctx, "Application bootstrap complete")
	return NewApplication(engine, logger), nil
}

func unmarshalConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		actionDecodeHook(),
	)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}
	return cfg, nil
}

// actionDecodeHook parses the sweep action case-insensitively, so
// EC2_TERMINATOR_SWEEP_ACTION=terminate and --action TeRmInAtE both work.
func actionDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(domain.Action("")) {
			return data, nil
		}
		raw := data.(string)
		if raw == "" {
			return domain.Action(""), nil
		}
		action, err := domain.ParseAction(raw)
		if err != nil {
			return nil, err
		}
		return action, nil
	}
}

func validateConfig(ctx context.Context, cfg *config.Config, logger ports.Logger) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.StructCtx(ctx, cfg)
	if err == nil {
		return nil
	}

	var errorDetails strings.Builder
	errorDetails.WriteString("Configuration validation failed:")
	validationErrors := err.(validator.ValidationErrors)
	for _, fe := range validationErrors {
		errorDetails.WriteString(fmt.Sprintf("\n - Field '%s': Failed on '%s' validation (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	wrappedErr := errors.NewUserFacing(errors.CodeConfigValidation, errorDetails.String(),
		"Check the configuration file or flags; sweep.action is required and must be STOP or TERMINATE.")
	logger.Errorf(ctx, wrappedErr, "Configuration validation failed")
	return wrappedErr
}

func buildReporter(ctx context.Context, cfg *config.Config, logger ports.Logger) (ports.Reporter, error) {
	switch cfg.Settings.ReporterType {
	case text.ReporterTypeText:
		reportLog := logger.WithFields(map[string]any{"component": "reporter", "type": text.ReporterTypeText})
		reporter, err := text.NewReporter(text.Config{}, reportLog)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize text reporter")
		}
		reportLog.Debugf(ctx, "Using text reporter")
		return reporter, nil
	case jsonreport.ReporterTypeJSON:
		reportLog := logger.WithFields(map[string]any{"component": "reporter", "type": jsonreport.ReporterTypeJSON})
		reporter, err := jsonreport.NewReporter(jsonreport.Config{}, reportLog)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize JSON reporter")
		}
		reportLog.Debugf(ctx, "Using JSON reporter")
		return reporter, nil
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported reporter type: %s", cfg.Settings.ReporterType), "Supported: text, json")
	}
}
