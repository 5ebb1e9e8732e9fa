package extract

import (
	"context"

	"github.com/tubegate/tubegate/internal/headers"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/media"
	"github.com/tubegate/tubegate/internal/proxypool"
)

// AttemptFunc observes each strategy execution; used by the websocket
// endpoint to stream progress. May be nil.
type AttemptFunc func(media.Attempt)

// Ladder runs the ordered strategy list. Steps execute strictly
// sequentially — a later step only runs after the prior one's failure
// has been observed — to keep total outbound call volume low.
type Ladder struct {
	strategies []Strategy
	logger     logging.Logger
}

// NewLadder assembles the default five-rung ladder: full-session direct
// extraction, reduced-header direct, mobile-profile direct, proxy-relayed,
// and finally the external tool.
func NewLadder(cfg Config, provider headers.Provider, pool *proxypool.Pool, logger logging.Logger) *Ladder {
	return &Ladder{
		strategies: []Strategy{
			NewDirect("direct_full_session", headers.ProfileDesktop, true, provider, cfg, logger),
			NewDirect("direct_reduced", headers.ProfileMinimal, false, provider, cfg, logger),
			NewDirect("direct_mobile", headers.ProfileMobile, false, provider, cfg, logger),
			NewProxy(pool, provider, cfg, logger),
			NewTool(cfg, logger),
		},
		logger: logger.With(logging.Field{Key: "component", Value: "ladder"}),
	}
}

// NewLadderWith builds a ladder over explicit strategies. Tests use it
// to substitute scripted steps.
func NewLadderWith(logger logging.Logger, strategies ...Strategy) *Ladder {
	return &Ladder{strategies: strategies, logger: logger}
}

// Acquire walks the ladder until a strategy succeeds. Earlier failures
// are recorded and logged but never surfaced on success. On exhaustion
// the returned ExhaustedError carries every attempt and classifies by
// the last failure's kind.
func (l *Ladder) Acquire(ctx context.Context, src *media.Source, req media.Request, observe AttemptFunc) (*media.Resolution, error) {
	var attempts []media.Attempt
	var lastErr error

	for _, strat := range l.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := strat.Attempt(ctx, src, req)
		if err == nil {
			attempts = append(attempts, media.Attempt{Strategy: strat.Name(), OK: true})
			if observe != nil {
				observe(attempts[len(attempts)-1])
			}
			l.logger.Info("strategy succeeded",
				logging.Field{Key: "strategy", Value: strat.Name()},
				logging.Field{Key: "quality", Value: res.Encoding.QualityLabel})
			return res, nil
		}

		classified := media.Classify(err)
		attempt := media.Attempt{Strategy: strat.Name(), Error: err.Error()}
		attempts = append(attempts, attempt)
		if observe != nil {
			observe(attempt)
		}
		l.logger.Warn("strategy failed, advancing ladder",
			logging.Field{Key: "strategy", Value: strat.Name()},
			logging.Field{Key: "blocked", Value: classified == media.ErrBlockedBySource},
			logging.Field{Key: "error", Value: err.Error()})
		lastErr = err
	}

	return nil, &ExhaustedError{Attempts: attempts, Last: lastErr}
}
