// Package errmap classifies runtime errors into the closed failure code
// taxonomy of the envelope package.
package errmap

import (
	"context"
	"errors"
	"regexp"

	"github.com/eforest-finance/forest-agent-kit/envelope"
)

// HTTPError is implemented by errors that originate from an HTTP response.
// A zero status means the request never produced a response.
type HTTPError interface {
	error
	HTTPStatus() int
}

// MessageError is implemented by errors that carry a server supplied
// message, preferred over Error().
type MessageError interface {
	error
	ResponseMessage() string
}

// Mapping is the classification of an error.
type Mapping struct {
	Details     map[string]any
	Retryable   *bool
	Maintenance *bool
	Code        envelope.Code
	Message     string
}

// Options converts m into envelope failure options.
func (m Mapping) Options() []envelope.FailureOption {
	var opts []envelope.FailureOption
	if m.Maintenance != nil {
		opts = append(opts, envelope.WithMaintenance(*m.Maintenance))
	}
	if m.Retryable != nil {
		opts = append(opts, envelope.WithRetryable(*m.Retryable))
	}
	if m.Details != nil {
		opts = append(opts, envelope.WithDetails(m.Details))
	}
	return opts
}

// Envelope builds the failure envelope for m.
func (m Mapping) Envelope(traceID string) envelope.Envelope {
	opts := append(m.Options(), envelope.WithTraceID(traceID))
	return envelope.Failure(m.Code, m.Message, opts...)
}

var (
	maintenancePattern = regexp.MustCompile(`(?i)maintenance|disabled|offline`)
	timeoutPattern     = regexp.MustCompile(`(?i)timeout|timed out`)
	revertPattern      = regexp.MustCompile(`(?i)revert|no permission|transaction failed|failed with status`)
)

func flag(v bool) *bool { return &v }

// Message extracts the most specific message from err.
func Message(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var me MessageError
	if errors.As(err, &me) {
		if msg := me.ResponseMessage(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}

// Map classifies err. HTTP origin wins over message heuristics, except for
// requests that hit the caller's deadline before any response arrived.
func Map(err error) Mapping {
	msg := Message(err)

	var he HTTPError
	if errors.As(err, &he) {
		switch status := he.HTTPStatus(); {
		case status == 0 && errors.Is(err, context.DeadlineExceeded):
			return Mapping{Code: envelope.CodeTxTimeout, Message: msg, Retryable: flag(true)}
		case status == 401 || status == 403:
			return Mapping{Code: envelope.CodeUnauthorized, Message: msg, Retryable: flag(false)}
		case status == 429:
			return Mapping{Code: envelope.CodeRateLimited, Message: msg, Retryable: flag(true)}
		case status >= 500:
			return Mapping{Code: envelope.CodeUpstreamError, Message: msg, Retryable: flag(true)}
		default:
			return Mapping{Code: envelope.CodeUpstreamError, Message: msg, Retryable: flag(false)}
		}
	}

	switch {
	case maintenancePattern.MatchString(msg):
		return Mapping{Code: envelope.CodeMaintenance, Message: msg, Maintenance: flag(true), Retryable: flag(true)}
	case timeoutPattern.MatchString(msg), errors.Is(err, context.DeadlineExceeded):
		return Mapping{Code: envelope.CodeTxTimeout, Message: msg, Retryable: flag(true)}
	case revertPattern.MatchString(msg):
		return Mapping{Code: envelope.CodeOnchainRevert, Message: msg, Retryable: flag(false)}
	default:
		return Mapping{Code: envelope.CodeInternalError, Message: msg, Retryable: flag(false)}
	}
}
