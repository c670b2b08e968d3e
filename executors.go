package forest

import (
	"context"
	"fmt"

	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/errmap"
	"github.com/eforest-finance/forest-agent-kit/routing"
	"github.com/eforest-finance/forest-agent-kit/schema"
	"github.com/eforest-finance/forest-agent-kit/skills"
	"github.com/eforest-finance/forest-agent-kit/workflow"
)

// executeKind is the innermost ExecuteFunc. Invoker errors are mapped here,
// exactly once.
func (d *Dispatcher) executeKind(ctx context.Context, call *Call) envelope.Envelope {
	var (
		env envelope.Envelope
		err error
	)
	switch call.Skill.Kind {
	case skills.KindMethodContract:
		env, err = d.executeContract(ctx, call)
	case skills.KindMethodAPI:
		env, err = d.executeAPI(ctx, call)
	case skills.KindWorkflow:
		env = workflow.Execute(ctx, workflow.Call{
			Input:     call.Input,
			Skill:     call.Skill.Name,
			TraceID:   call.TraceID,
			Env:       call.Env,
			TimeoutMs: call.TimeoutMs,
			DryRun:    call.DryRun,
		}, helpers{d: d})
	default:
		err = fmt.Errorf("%w: %q", skills.ErrUnknownKind, call.Skill.Kind)
	}
	if err != nil {
		return errmap.Map(err).Envelope(call.TraceID)
	}
	return env
}

func (d *Dispatcher) executeContract(ctx context.Context, call *Call) (envelope.Envelope, error) {
	name := call.Skill.Name
	method := stringField(call.Input["method"])
	args := objectField(call.Input["args"])
	chain := routing.NormalizeChain(stringField(call.Input["chain"]))
	mode := routing.ExecutionModeFor(name, method)

	var contracts map[string]any
	if call.Network != nil {
		contracts = call.Network.Contracts
	}
	address := routing.ResolveAddress(name, chain, contracts)
	if address == "" {
		return envelope.Failure(envelope.CodeMaintenance,
			fmt.Sprintf("Contract address is not configured for %s on chain %s.", name, chain),
			envelope.WithMaintenance(true),
			envelope.WithTraceID(call.TraceID),
			envelope.WithDetails(map[string]any{"skillName": name, "chain": chain}),
		), nil
	}

	rpcURL := call.Network.RPCURL(chain)
	if rpcURL == "" {
		return envelope.Failure(envelope.CodeMaintenance,
			fmt.Sprintf("RPC URL is not configured for chain %s.", chain),
			envelope.WithMaintenance(true),
			envelope.WithTraceID(call.TraceID),
			envelope.WithDetails(map[string]any{"chain": chain}),
		), nil
	}

	if call.DryRun {
		verb := "View"
		if mode == routing.ModeSend {
			verb = "Send"
		}
		return envelope.Success(map[string]any{
			"dryRun":          true,
			"executionMode":   string(mode),
			"chain":           chain,
			"contractAddress": address,
			"method":          method,
			"args":            args,
			"steps": []any{map[string]any{
				"action":   verb + " contract method",
				"contract": address,
				"method":   method,
				"params":   args,
			}},
		}, call.TraceID), nil
	}

	raw, err := d.contracts.InvokeContract(ctx, ContractRequest{
		Network:         call.Network,
		Args:            args,
		SkillName:       name,
		Method:          method,
		Chain:           chain,
		ContractAddress: address,
		RPCURL:          rpcURL,
		Mode:            mode,
		Timeout:         call.Timeout(),
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	result, err := normalizeResult(raw)
	if err != nil {
		return envelope.Envelope{}, err
	}

	data := map[string]any{
		"executionMode":   string(mode),
		"chain":           chain,
		"contractAddress": address,
		"method":          method,
		"args":            args,
		"result":          result,
	}
	if mode == routing.ModeSend {
		if txID := envelope.TransactionID(result); txID != "" {
			data["transactionId"] = txID
		}
	}
	return envelope.Success(data, call.TraceID), nil
}

func (d *Dispatcher) executeAPI(ctx context.Context, call *Call) (envelope.Envelope, error) {
	name := call.Skill.Name
	action := stringField(call.Input["action"])
	params := objectField(call.Input["params"])

	if call.DryRun {
		return envelope.Success(map[string]any{
			"dryRun": true,
			"action": action,
			"params": params,
			"steps": []any{map[string]any{
				"action":    "Invoke backend API action",
				"apiAction": action,
				"params":    params,
			}},
		}, call.TraceID), nil
	}

	route, ok := routing.ResolveRoute(name, action, call.Snapshot)
	if !ok {
		return envelope.Failure(envelope.CodeMaintenance,
			fmt.Sprintf("No API route configured for %s.%s. Configure %s.", name, action, routing.EnvActionMap),
			envelope.WithMaintenance(true),
			envelope.WithTraceID(call.TraceID),
			envelope.WithDetails(map[string]any{"skillName": name, "action": action}),
		), nil
	}

	raw, err := d.apis.InvokeAPI(ctx, APIRequest{
		Network:   call.Network,
		Params:    params,
		Route:     route,
		SkillName: name,
		Action:    action,
		Timeout:   call.Timeout(),
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	result, err := normalizeResult(raw)
	if err != nil {
		return envelope.Envelope{}, err
	}

	return envelope.Success(map[string]any{
		"action": action,
		"route": map[string]any{
			"method": route.Method,
			"path":   route.Path,
			"auth":   route.Auth,
		},
		"params": params,
		"result": result,
	}, call.TraceID), nil
}

// normalizeResult converts invoker output to plain JSON values so that
// workflows and callers see maps regardless of the invoker's Go types.
func normalizeResult(v any) (any, error) {
	out, err := schema.ToJSONValue(v)
	if err != nil {
		return nil, fmt.Errorf("invoker result is not JSON serializable: %w", err)
	}
	return out, nil
}

// helpers performs workflow sub-steps as full dispatches.
type helpers struct {
	d *Dispatcher
}

func (h helpers) base(src workflow.Call) map[string]any {
	in := map[string]any{
		"env":     src.Env,
		"dryRun":  src.DryRun,
		"traceId": src.TraceID,
	}
	if src.TimeoutMs > 0 {
		in["timeoutMs"] = src.TimeoutMs
	}
	return in
}

func (h helpers) InvokeContract(ctx context.Context, src workflow.Call, skill, method string, args map[string]any, chain string) envelope.Envelope {
	in := h.base(src)
	in["method"] = method
	if args == nil {
		args = map[string]any{}
	}
	in["args"] = args
	if chain != "" {
		in["chain"] = chain
	}
	return h.d.Dispatch(ctx, skill, in)
}

func (h helpers) InvokeAPI(ctx context.Context, src workflow.Call, skill, action string, params map[string]any) envelope.Envelope {
	in := h.base(src)
	in["action"] = action
	if params == nil {
		params = map[string]any{}
	}
	in["params"] = params
	return h.d.Dispatch(ctx, skill, in)
}
