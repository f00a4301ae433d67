package nats

import (
	"context"
	"errors"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// classifyNATSError treats connectivity trouble as retryable; everything
// else fails the publish outright.
func classifyNATSError(err error) resilience.Verdict {
	switch {
	case err == nil:
		return resilience.Verdict{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Verdict{}
	case resilience.CircuitOpen(err):
		return resilience.Verdict{Retry: true, TripBreaker: true}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Verdict{Retry: true, TripBreaker: true}
	}
	return resilience.Verdict{TripBreaker: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if verdict := classifyNATSError(err); verdict.Retry || resilience.CircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
