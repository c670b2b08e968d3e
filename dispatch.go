package forest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/schema"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// Call is a skill invocation that passed validation and gating.
type Call struct {
	Input    envelope.Input
	Snapshot config.Snapshot
	Network  *config.Network
	Skill    skills.Definition
	TraceID  string
	Env      string
	// TimeoutMs is the caller's advisory timeout, 0 when absent.
	TimeoutMs int64
	DryRun    bool
}

// Timeout returns TimeoutMs as a duration.
func (c *Call) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Dispatch runs skillName with input. input may be any JSON-serializable
// value; it is deep copied and never mutated.
func (d *Dispatcher) Dispatch(ctx context.Context, skillName string, input any) envelope.Envelope {
	def, ok := d.skills.Get(skillName)
	if !ok {
		return envelope.Failure(envelope.CodeInvalidParams, "Unknown forest skill: "+skillName)
	}

	instance, err := schema.ToJSONValue(input)
	obj, isObject := instance.(map[string]any)
	if isObject {
		if _, ok := obj["env"]; !ok {
			obj["env"] = envelope.EnvMainnet
		}
		if _, ok := obj["dryRun"]; !ok {
			obj["dryRun"] = false
		}
	}
	inputTraceID, _ := obj["traceId"].(string)
	traceID := envelope.NewTraceID(inputTraceID, skillName, d.now())

	var res schema.Result
	if err != nil {
		res = schema.Result{Errors: []schema.FieldError{{Path: "/", Message: fmt.Sprintf("input is not JSON serializable: %v", err)}}}
	} else {
		res = d.schemas.Validate(def.In, instance)
	}
	if !res.Valid {
		d.logger.Debug("dispatch rejected",
			slog.String("skill", skillName),
			slog.String("trace_id", traceID),
			slog.Int("errors", len(res.Errors)))
		return envelope.Failure(envelope.CodeInvalidParams, "Input does not match schema.",
			envelope.WithTraceID(traceID),
			envelope.WithDetails(map[string]any{
				"schema": def.In,
				"errors": res.Errors,
			}),
		)
	}

	snap := d.source.Snapshot()
	state := d.gate.Check(def.ServiceKey, snap)
	details := envelope.WithDetails(map[string]any{"serviceKey": def.ServiceKey})
	if !state.Enabled {
		return envelope.Failure(envelope.CodeServiceDisabled,
			fmt.Sprintf("Service disabled for key %s.", def.ServiceKey),
			envelope.WithMaintenance(true), envelope.WithTraceID(traceID), details)
	}
	if state.Maintenance {
		return envelope.Failure(envelope.CodeMaintenance,
			fmt.Sprintf("Service in maintenance for key %s.", def.ServiceKey),
			envelope.WithMaintenance(true), envelope.WithTraceID(traceID), details)
	}

	env, _ := obj["env"].(string)
	dryRun, _ := obj["dryRun"].(bool)
	call := &Call{
		Input:     envelope.Input(obj),
		Snapshot:  snap,
		Network:   d.networkFor(env),
		Skill:     def,
		TraceID:   traceID,
		Env:       env,
		TimeoutMs: int64Field(obj["timeoutMs"]),
		DryRun:    dryRun,
	}
	return d.execute(ContextWithTraceID(ctx, traceID), call)
}

func int64Field(v any) int64 {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil && f > 0 && f < math.MaxInt64 {
			return int64(f)
		}
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func objectField(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
