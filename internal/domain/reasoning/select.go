package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
)

const (
	KindLocal  = "local"
	KindRemote = "remote"
)

// Config selects and configures the reasoner.
type Config struct {
	Remote   RemoteConfig
	Fallback bool
	Limits   interview.Limits
}

// New picks the reasoner once, at construction. A configured remote backend
// is probed; if the probe fails the local reasoner is used when Fallback is
// set, otherwise construction fails. Without a remote URL the local reasoner
// is always used.
func New(ctx context.Context, cfg Config, table *knowledge.Table, logger zerolog.Logger) (interview.Reasoner, string, error) {
	if cfg.Remote.BaseURL == "" {
		logger.Info().Msg("using local reasoner")
		return NewLocal(table, cfg.Limits), KindLocal, nil
	}

	remote := NewRemote(cfg.Remote, logger)
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout(cfg.Remote.Timeout))
	defer cancel()

	if err := remote.Probe(probeCtx); err != nil {
		if !cfg.Fallback {
			return nil, "", fmt.Errorf("reasoner at %s unreachable: %w", cfg.Remote.BaseURL, err)
		}
		logger.Warn().Err(err).Str("url", cfg.Remote.BaseURL).Msg("remote reasoner unreachable, using local reasoner")
		return NewLocal(table, cfg.Limits), KindLocal, nil
	}

	logger.Info().Str("url", cfg.Remote.BaseURL).Msg("using remote reasoner")
	return remote, KindRemote, nil
}

func probeTimeout(d time.Duration) time.Duration {
	if d <= 0 || d > 5*time.Second {
		return 5 * time.Second
	}
	return d
}
