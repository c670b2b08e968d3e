// Package envelope defines the request and response wrappers shared by every
// forest skill.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Code is a response code. Success envelopes always carry CodeOK; failure
// envelopes carry one of the closed failure codes below.
type Code string

const (
	CodeOK Code = "OK"

	CodeInvalidParams   Code = "INVALID_PARAMS"
	CodeServiceDisabled Code = "SERVICE_DISABLED"
	CodeMaintenance     Code = "MAINTENANCE"
	CodeUpstreamError   Code = "UPSTREAM_ERROR"
	CodeOnchainRevert   Code = "ONCHAIN_REVERT"
	CodeTxTimeout       Code = "TX_TIMEOUT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeInternalError   Code = "INTERNAL_ERROR"
)

// FailureCodes lists the closed failure taxonomy in declaration order.
var FailureCodes = []Code{
	CodeInvalidParams,
	CodeServiceDisabled,
	CodeMaintenance,
	CodeUpstreamError,
	CodeOnchainRevert,
	CodeTxTimeout,
	CodeUnauthorized,
	CodeRateLimited,
	CodeInternalError,
}

// IsFailureCode reports whether c belongs to the failure taxonomy.
func IsFailureCode(c Code) bool {
	for _, fc := range FailureCodes {
		if fc == c {
			return true
		}
	}
	return false
}

// Env values accepted in the input envelope.
const (
	EnvMainnet = "mainnet"
	EnvTestnet = "testnet"
)

// Input is the caller supplied envelope. Recognized top-level keys are
// env, dryRun, traceId and timeoutMs; everything else is skill specific.
type Input map[string]any

// Envelope is the response of every dispatch. Exactly one of the success or
// failure shapes is populated, selected by Success.
type Envelope struct {
	Data        map[string]any
	Details     map[string]any
	Maintenance *bool
	Retryable   *bool
	Code        Code
	Message     string
	TraceID     string
	Warnings    []string
	Success     bool
}

// FailureOption customizes a failure envelope.
type FailureOption func(*Envelope)

// WithMaintenance sets the maintenance flag.
func WithMaintenance(maintenance bool) FailureOption {
	return func(e *Envelope) {
		e.Maintenance = &maintenance
	}
}

// WithRetryable sets the advisory retryable flag.
func WithRetryable(retryable bool) FailureOption {
	return func(e *Envelope) {
		e.Retryable = &retryable
	}
}

// WithTraceID attaches a trace id. Empty ids are ignored.
func WithTraceID(traceID string) FailureOption {
	return func(e *Envelope) {
		e.TraceID = traceID
	}
}

// WithDetails attaches structured details.
func WithDetails(details map[string]any) FailureOption {
	return func(e *Envelope) {
		e.Details = details
	}
}

// Success builds a success envelope. A nil data map becomes an empty one and
// warnings are never nil.
func Success(data map[string]any, traceID string, warnings ...string) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	w := make([]string, 0, len(warnings))
	w = append(w, warnings...)
	return Envelope{
		Success:  true,
		Code:     CodeOK,
		Data:     data,
		Warnings: w,
		TraceID:  traceID,
	}
}

// Failure builds a failure envelope.
func Failure(code Code, message string, opts ...FailureOption) Envelope {
	e := Envelope{
		Success: false,
		Code:    code,
		Message: message,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// IsSuccess reports whether e is a success envelope.
func (e Envelope) IsSuccess() bool { return e.Success }

// IsFailure reports whether e is a failure envelope.
func (e Envelope) IsFailure() bool { return !e.Success }

type successWire struct {
	Data     map[string]any `json:"data"`
	Code     Code           `json:"code"`
	TraceID  string         `json:"traceId,omitempty"`
	Warnings []string       `json:"warnings"`
	Success  bool           `json:"success"`
}

type failureWire struct {
	Details     map[string]any `json:"details,omitempty"`
	Maintenance *bool          `json:"maintenance,omitempty"`
	Retryable   *bool          `json:"retryable,omitempty"`
	Code        Code           `json:"code"`
	Message     string         `json:"message"`
	TraceID     string         `json:"traceId,omitempty"`
	Success     bool           `json:"success"`
}

// MarshalJSON emits either the success or the failure wire shape.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Success {
		data := e.Data
		if data == nil {
			data = map[string]any{}
		}
		warnings := e.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		return json.Marshal(successWire{
			Success:  true,
			Code:     CodeOK,
			Data:     data,
			Warnings: warnings,
			TraceID:  e.TraceID,
		})
	}
	return json.Marshal(failureWire{
		Success:     false,
		Code:        e.Code,
		Message:     e.Message,
		Maintenance: e.Maintenance,
		Retryable:   e.Retryable,
		TraceID:     e.TraceID,
		Details:     e.Details,
	})
}

// UnmarshalJSON accepts either wire shape.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var head struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	if head.Success == nil {
		return fmt.Errorf("envelope: missing success field")
	}
	if *head.Success {
		var w successWire
		if err := json.Unmarshal(b, &w); err != nil {
			return err
		}
		*e = Success(w.Data, w.TraceID, w.Warnings...)
		return nil
	}
	var w failureWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Envelope{
		Code:        w.Code,
		Message:     w.Message,
		Maintenance: w.Maintenance,
		Retryable:   w.Retryable,
		TraceID:     w.TraceID,
		Details:     w.Details,
	}
	return nil
}

// NewTraceID returns inputTraceID when set, otherwise
// "<prefix>-<unix millis>-<8 hex chars>". An empty prefix becomes "forest".
func NewTraceID(inputTraceID, prefix string, now time.Time) string {
	if inputTraceID != "" {
		return inputTraceID
	}
	if prefix == "" {
		prefix = "forest"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}

// TransactionID extracts a ledger transaction id from invoker output.
// Lookup order: transactionId, result.TransactionId, result.transactionId,
// TransactionId.
func TransactionID(data any) string {
	var m map[string]any
	switch v := data.(type) {
	case map[string]any:
		m = v
	case Input:
		m = v
	default:
		return ""
	}
	if s := nonEmptyString(m["transactionId"]); s != "" {
		return s
	}
	if result, ok := m["result"].(map[string]any); ok {
		if s := nonEmptyString(result["TransactionId"]); s != "" {
			return s
		}
		if s := nonEmptyString(result["transactionId"]); s != "" {
			return s
		}
	}
	return nonEmptyString(m["TransactionId"])
}

func nonEmptyString(v any) string {
	s, _ := v.(string)
	return s
}
