// Package workflow implements composite skills on top of method skills.
// Handlers never call invokers directly: every sub-step is a full dispatch
// performed through Helpers, so validation, gating and error mapping apply
// to each step.
package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/eforest-finance/forest-agent-kit/envelope"
)

// Call is a validated workflow invocation.
type Call struct {
	Input     envelope.Input
	Skill     string
	TraceID   string
	Env       string
	TimeoutMs int64
	DryRun    bool
}

// Payload returns input.payload, or an empty map.
func (c Call) Payload() map[string]any { return object(c.Input["payload"]) }

// Params returns input.params, or an empty map.
func (c Call) Params() map[string]any { return object(c.Input["params"]) }

// Action returns input.action, or "".
func (c Call) Action() string { return str(c.Input["action"]) }

// Helpers performs sub-dispatches on behalf of a handler. The source call
// provides env, dryRun, traceId and timeoutMs for the sub-envelope.
type Helpers interface {
	InvokeContract(ctx context.Context, src Call, skill, method string, args map[string]any, chain string) envelope.Envelope
	InvokeAPI(ctx context.Context, src Call, skill, action string, params map[string]any) envelope.Envelope
}

// Handler runs one workflow skill.
type Handler func(ctx context.Context, call Call, h Helpers) envelope.Envelope

var handlers = merge(p0Handlers, p1Handlers, p2Handlers)

func merge(tables ...map[string]Handler) map[string]Handler {
	out := make(map[string]Handler)
	for _, t := range tables {
		for name, h := range t {
			out[name] = h
		}
	}
	return out
}

// Lookup returns the handler registered for skill.
func Lookup(skill string) (Handler, bool) {
	h, ok := handlers[skill]
	return h, ok
}

// Names returns the skills that have a handler, sorted.
func Names() []string {
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Execute runs the handler for call.Skill.
func Execute(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	handler, ok := Lookup(call.Skill)
	if !ok {
		return envelope.Failure(envelope.CodeMaintenance,
			fmt.Sprintf("Workflow handler is not available for %s.", call.Skill),
			envelope.WithMaintenance(true),
			envelope.WithTraceID(call.TraceID),
			envelope.WithDetails(map[string]any{"skillName": call.Skill}),
		)
	}
	return handler(ctx, call, h)
}

// resultOf returns data.result of a successful sub-dispatch.
func resultOf(env envelope.Envelope) any {
	return env.Data["result"]
}

// resultObject returns data.result as the data of a success envelope:
// missing or falsy results become {}, non-object results are wrapped.
func resultObject(env envelope.Envelope) map[string]any {
	switch v := resultOf(env).(type) {
	case map[string]any:
		return v
	default:
		if !truthy(v) {
			return map[string]any{}
		}
		return map[string]any{"result": v}
	}
}

func object(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case envelope.Input:
		return m
	default:
		return map[string]any{}
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// truthy follows JSON falsiness: nil, false, "", 0.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case interface{ String() string }:
		return x.String() != "0"
	default:
		return true
	}
}

// compact drops nil entries, the way absent keys are omitted on the wire.
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m
}

// firstString returns the first non-empty string among vs.
func firstString(vs ...any) string {
	for _, v := range vs {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

func txOnly(env envelope.Envelope, traceID string) envelope.Envelope {
	return envelope.Success(map[string]any{"transactionId": envelope.TransactionID(env.Data)}, traceID)
}
