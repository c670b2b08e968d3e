package policy

import (
	"log/slog"
)

// DenialHandler is called when a service is disabled or in maintenance.
type DenialHandler interface {
	// OnDenial receives the service key, the resolved state and the rule
	// that produced it.
	OnDenial(serviceKey string, state ServiceState, reason string)
}

// Ensure implementations satisfy the interface.
var (
	_ DenialHandler = (*LogDenialHandler)(nil)
	_ DenialHandler = (*NopDenialHandler)(nil)
)

// LogDenialHandler logs denials at warn level.
type LogDenialHandler struct {
	Logger *slog.Logger
}

func (h *LogDenialHandler) OnDenial(serviceKey string, state ServiceState, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("service unavailable",
		"service_key", serviceKey,
		"enabled", state.Enabled,
		"maintenance", state.Maintenance,
		"reason", reason,
	)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(serviceKey string, state ServiceState, reason string) {}
