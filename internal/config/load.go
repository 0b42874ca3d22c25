package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// LoadConfig reads every configuration group from the process environment.
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	return LoadConfigFrom(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom is LoadConfig with an explicit lookuper, used by tests.
func LoadConfigFrom(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if len(cfg.Tasks) != len(cfg.TaskP) {
		return nil, fmt.Errorf("TASKS has %d entries but TASK_P has %d", len(cfg.Tasks), len(cfg.TaskP))
	}
	if cfg.ScoringQueueSize <= 0 {
		return nil, fmt.Errorf("SCORING_QUEUE_SIZE must be positive, got %d", cfg.ScoringQueueSize)
	}
	if cfg.MovingAverageAlpha <= 0 || cfg.MovingAverageAlpha > 1 {
		return nil, fmt.Errorf("MOVING_AVERAGE_ALPHA must be in (0, 1], got %f", cfg.MovingAverageAlpha)
	}
	return cfg, nil
}
