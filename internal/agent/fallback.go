package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"repolens/internal/backend"
	"repolens/internal/logging"
)

// isModelUnavailable classifies a CreateSession error. Backends that do not
// wrap ErrModelUnavailable are matched on their message text. Transport and
// cancellation errors never are: their text carries the request URL, which
// names the model.
func isModelUnavailable(err error) bool {
	if errors.Is(err, backend.ErrModelUnavailable) {
		return true
	}
	if isTransportError(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model") || strings.Contains(msg, "not available")
}

func isTransportError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// openSession tries each candidate in order and returns the first session a
// backend accepts, together with the model that accepted it. Only
// unavailable-model errors move on to the next candidate.
func openSession(ctx context.Context, factory backend.SessionFactory, candidates []string, sc backend.SessionConfig, stats *statsCollector) (backend.Session, string, error) {
	if len(candidates) == 0 {
		return nil, "", ErrNoCandidates
	}

	var last error
	for i, model := range candidates {
		stats.modelAttempt(model)
		cfg := sc
		cfg.Model = model

		sess, err := factory.CreateSession(ctx, cfg)
		if err == nil {
			if i > 0 {
				logging.Agent("Using fallback model %s after %d unavailable", model, i)
			}
			stats.setModel(model)
			return sess, model, nil
		}
		if !isModelUnavailable(err) {
			return nil, "", fmt.Errorf("failed to create session with %s: %w", model, err)
		}
		logging.AgentWarn("Model %s unavailable: %v", model, err)
		last = err
	}
	return nil, "", &NoAvailableModelsError{Tried: append([]string(nil), candidates...), Last: last}
}
