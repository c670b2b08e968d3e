package workflow

import (
	"context"

	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// DropActions maps query-drop actions to drop API actions.
var DropActions = map[string]string{
	"list":           "fetchDropList",
	"detail":         "fetchDropDetail",
	"quota":          "fetchDropQuota",
	"recommendation": "fetchRecommendAction",
}

// WhitelistReadMethods maps whitelist-read actions to contract view methods.
var WhitelistReadMethods = map[string]string{
	"getWhitelist":              "GetWhitelist",
	"getWhitelistDetail":        "GetWhitelistDetail",
	"getAddressFromWhitelist":   "GetAddressFromWhitelist",
	"getTagInfoFromWhitelist":   "GetTagInfoFromWhitelist",
	"getWhitelistId":            "GetWhitelistId",
	"getTagInfoListByWhitelist": "GetTagInfoListByWhitelist",
}

// WhitelistManageMethods maps whitelist-manage actions to contract methods.
var WhitelistManageMethods = map[string]string{
	"enable":          "EnableWhitelist",
	"disable":         "DisableWhitelist",
	"addAddressInfo":  "AddAddressInfoListToWhitelist",
	"removeInfo":      "RemoveInfoFromWhitelist",
	"updateExtraInfo": "UpdateExtraInfo",
	"addExtraInfo":    "AddExtraInfo",
	"removeTagInfo":   "RemoveTagInfo",
	"reset":           "ResetWhitelist",
}

var p1Handlers = map[string]Handler{
	skills.IssueItem:       issueItem,
	skills.PlaceBid:        contractStep(skills.ContractAuction, "PlaceBid"),
	skills.ClaimDrop:       claimDrop,
	skills.QueryDrop:       apiQuery(skills.APIDrop, DropActions),
	skills.WhitelistRead:   whitelistRead,
	skills.WhitelistManage: whitelistManage,
}

func issueItem(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	res := h.InvokeContract(ctx, call, skills.ContractMultitoken, "Issue", payload, str(payload["chain"]))
	if res.IsFailure() {
		return res
	}
	return envelope.Success(map[string]any{
		"transactionId": envelope.TransactionID(res.Data),
		"proxyIssuer":   str(payload["issuer"]),
	}, call.TraceID)
}

func claimDrop(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	res := h.InvokeContract(ctx, call, skills.ContractDrop, "ClaimDrop", payload, str(payload["chain"]))
	if res.IsFailure() {
		return res
	}
	return envelope.Success(map[string]any{
		"transactionId":   envelope.TransactionID(res.Data),
		"claimDetailList": []any{},
	}, call.TraceID)
}

// apiQuery maps input.action through actions, forwards input.params to
// skill and returns the API result object.
func apiQuery(skill string, actions map[string]string) Handler {
	return func(ctx context.Context, call Call, h Helpers) envelope.Envelope {
		res := h.InvokeAPI(ctx, call, skill, actions[call.Action()], call.Params())
		if res.IsFailure() {
			return res
		}
		return envelope.Success(resultObject(res), call.TraceID)
	}
}

// paramsChain is params.chain, falling back to input.chain.
func paramsChain(call Call) string {
	return firstString(call.Params()["chain"], call.Input["chain"])
}

func whitelistRead(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	method := WhitelistReadMethods[call.Action()]
	res := h.InvokeContract(ctx, call, skills.ContractWhitelist, method, call.Params(), paramsChain(call))
	if res.IsFailure() {
		return res
	}
	return envelope.Success(resultObject(res), call.TraceID)
}

func whitelistManage(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	method := WhitelistManageMethods[call.Action()]
	res := h.InvokeContract(ctx, call, skills.ContractWhitelist, method, call.Params(), paramsChain(call))
	if res.IsFailure() {
		return res
	}
	return txOnly(res, call.TraceID)
}
