package telemetry_test

import (
	"sync"
	"testing"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "delivery-integrations",
	}

	profiler, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, profiler)

	assert.False(t, profiler.IsEnabled())

	gotCfg := profiler.GetConfig()
	assert.Equal(t, cfg.ApplicationName, gotCfg.ApplicationName)
	assert.False(t, gotCfg.Enabled)

	// Stop is a no-op when profiling never started.
	assert.NoError(t, profiler.Stop())
}

func TestNewProfiler_Enabled_MissingServerAddress(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := telemetry.ProfilerConfig{
		Enabled:         true,
		ApplicationName: "delivery-integrations",
	}

	profiler, err := telemetry.NewProfiler(cfg, logger)
	require.Error(t, err)
	assert.Nil(t, profiler)
	assert.Contains(t, err.Error(), "server address is required")
}

func TestNewProfiler_Enabled_MissingApplicationName(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := telemetry.ProfilerConfig{
		Enabled:       true,
		ServerAddress: "http://localhost:4040",
	}

	profiler, err := telemetry.NewProfiler(cfg, logger)
	require.Error(t, err)
	assert.Nil(t, profiler)
	assert.Contains(t, err.Error(), "application name is required")
}

func TestNewProfiler_EnabledIntegration(t *testing.T) {
	// Needs a reachable Pyroscope server; run locally against the
	// docker-compose stack.
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := zaptest.NewLogger(t)

	cfg := telemetry.ProfilerConfig{
		Enabled:           true,
		ServerAddress:     "http://localhost:4040",
		ApplicationName:   "delivery-integrations",
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}

	profiler, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, profiler)

	assert.True(t, profiler.IsEnabled())
	assert.NoError(t, profiler.Stop())
}

func TestProfiler_StopIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, logger)
	require.NoError(t, err)

	for range 3 {
		assert.NoError(t, profiler.Stop())
	}
}

func TestProfiler_StopConcurrent(t *testing.T) {
	logger := zaptest.NewLogger(t)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, logger)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = profiler.Stop()
		}()
	}
	wg.Wait()
}

func TestProfiler_GetConfigRoundTrip(t *testing.T) {
	logger := zaptest.NewLogger(t)

	cfg := telemetry.ProfilerConfig{
		Enabled:              false,
		ServerAddress:        "http://localhost:4040",
		ApplicationName:      "delivery-integrations",
		Environment:          "staging",
		ProfileMutex:         true,
		ProfileBlock:         true,
		MutexProfileFraction: 10,
		BlockProfileRate:     10,
		DisableGCRuns:        true,
	}

	profiler, err := telemetry.NewProfiler(cfg, logger)
	require.NoError(t, err)

	assert.Equal(t, cfg, profiler.GetConfig())
}

func TestProfiler_DisabledNeverStartsRegardlessOfProfileTypes(t *testing.T) {
	tests := []struct {
		name   string
		config telemetry.ProfilerConfig
	}{
		{
			name: "no_profile_types",
			config: telemetry.ProfilerConfig{
				ServerAddress:   "http://localhost:4040",
				ApplicationName: "delivery-integrations",
			},
		},
		{
			name: "cpu_only",
			config: telemetry.ProfilerConfig{
				ServerAddress:   "http://localhost:4040",
				ApplicationName: "delivery-integrations",
				ProfileCPU:      true,
			},
		},
		{
			name: "everything",
			config: telemetry.ProfilerConfig{
				ServerAddress:     "http://localhost:4040",
				ApplicationName:   "delivery-integrations",
				ProfileCPU:        true,
				ProfileAllocSpace: true,
				ProfileInuseSpace: true,
				ProfileGoroutines: true,
				ProfileMutex:      true,
				ProfileBlock:      true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)

			profiler, err := telemetry.NewProfiler(tt.config, logger)
			require.NoError(t, err)
			require.NotNil(t, profiler)

			assert.False(t, profiler.IsEnabled())
			assert.NoError(t, profiler.Stop())
		})
	}
}
