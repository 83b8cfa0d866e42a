package app

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/mocks"
)

func TestUnmarshalConfigDefaults(t *testing.T) {
	cfg, err := unmarshalConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Sweep.BatchSize)
	assert.Equal(t, 4, cfg.Sweep.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Sweep.DispatchDeadline)
	assert.Equal(t, 5, cfg.Sweep.Retry.MaxAttempts)
	assert.Empty(t, cfg.Sweep.Regions)
	assert.Empty(t, cfg.Sweep.Action, "the action must never default")
}

func TestUnmarshalConfigParsesActionCaseInsensitively(t *testing.T) {
	for _, raw := range []string{"terminate", "TERMINATE", "TeRmInAtE"} {
		v := viper.New()
		v.Set("sweep.action", raw)

		cfg, err := unmarshalConfig(v)
		require.NoError(t, err, raw)
		assert.Equal(t, domain.ActionTerminate, cfg.Sweep.Action)
	}
}

func TestUnmarshalConfigRejectsUnknownAction(t *testing.T) {
	v := viper.New()
	v.Set("sweep.action", "reboot")

	_, err := unmarshalConfig(v)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigParseError))
}

func TestUnmarshalConfigSplitsRegionsFromString(t *testing.T) {
	v := viper.New()
	v.Set("sweep.action", "stop")
	v.Set("sweep.regions", "us-east-1,eu-west-1")

	cfg, err := unmarshalConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, cfg.Sweep.Regions)
}

func TestUnmarshalConfigParsesDurations(t *testing.T) {
	v := viper.New()
	v.Set("sweep.action", "stop")
	v.Set("sweep.dispatch_deadline", "90s")
	v.Set("sweep.retry.base_delay", "50ms")

	cfg, err := unmarshalConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Sweep.DispatchDeadline)
	assert.Equal(t, 50*time.Millisecond, cfg.Sweep.Retry.BaseDelay)
}

func TestValidateConfigRequiresAction(t *testing.T) {
	v := viper.New()
	cfg, err := unmarshalConfig(v)
	require.NoError(t, err)

	err = validateConfig(context.Background(), cfg, mocks.NopLogger{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	message, suggestion, ok := apperrors.GetUserFacingMessage(err)
	assert.True(t, ok)
	assert.Contains(t, message, "Sweep.Action")
	assert.Contains(t, suggestion, "sweep.action")
}

func TestValidateConfigBounds(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(v *viper.Viper)
		wantErr bool
	}{
		{name: "valid", mutate: func(v *viper.Viper) {}},
		{name: "batch size too large", mutate: func(v *viper.Viper) { v.Set("sweep.batch_size", 500) }, wantErr: true},
		{name: "zero concurrency", mutate: func(v *viper.Viper) { v.Set("sweep.concurrency", 0) }, wantErr: true},
		{name: "sub-second deadline", mutate: func(v *viper.Viper) { v.Set("sweep.dispatch_deadline", "100ms") }, wantErr: true},
		{name: "too many attempts", mutate: func(v *viper.Viper) { v.Set("sweep.retry.max_attempts", 50) }, wantErr: true},
		{name: "unknown reporter", mutate: func(v *viper.Viper) { v.Set("settings.reporter", "xml") }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			v.Set("sweep.action", "STOP")
			tc.mutate(v)

			cfg, err := unmarshalConfig(v)
			require.NoError(t, err)

			err = validateConfig(context.Background(), cfg, mocks.NopLogger{})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
