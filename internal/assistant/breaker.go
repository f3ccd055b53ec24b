package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerCompleter fails fast once the model provider keeps erroring, so
// assistant requests do not pile up behind a dead upstream.
type BreakerCompleter struct {
	next Completer
	cb   *gobreaker.CircuitBreaker[string]
}

func NewBreakerCompleter(next Completer, log zerolog.Logger) *BreakerCompleter {
	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &BreakerCompleter{next: next, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (b *BreakerCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (string, error) {
		return b.next.Complete(ctx, system, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out, err
}
