package backend

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
	"github.com/michaelfortunato/pueue-webui/pkg/telemetry"
)

// fallbackGate decides whether a failed network call may retry via the CLI
// and owns the once-per-process warning. It is a single explicit secondary
// strategy, not a retry loop: one attempt, no backoff, and if the CLI also
// fails that error is terminal.
type fallbackGate struct {
	enabled bool
	used    atomic.Bool
	logger  *slog.Logger
}

func newFallbackGate(logger *slog.Logger) *fallbackGate {
	return &fallbackGate{enabled: cliFallbackEnabled(), logger: logger}
}

// cliFallbackEnabled reads the PUEUE_CLI_FALLBACK toggle; anything but "0"
// (including unset) enables the fallback.
func cliFallbackEnabled() bool {
	value, ok := os.LookupEnv("PUEUE_CLI_FALLBACK")
	return !ok || value != "0"
}

// allows reports whether err is recoverable through the CLI. Validation and
// unsupported-action errors are caller mistakes and bypass the fallback
// entirely.
func (g *fallbackGate) allows(err error) bool {
	if !g.enabled {
		return false
	}
	var validation *domain.ValidationError
	var unsupported *domain.UnsupportedActionError
	if errors.As(err, &validation) || errors.As(err, &unsupported) {
		return false
	}
	return true
}

// activate records a fallback use. The warning fires exactly once per
// process lifetime, whichever operation triggers it first; the CAS makes
// sure only the first flip wins under concurrency.
func (g *fallbackGate) activate(operation string, err error) {
	telemetry.FallbackActivations.Inc()
	if g.used.CompareAndSwap(false, true) {
		g.logger.Warn("daemon unreachable, falling back to the pueue CLI",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
}
