package workflow

import (
	"context"

	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/routing"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// QuoteIncludeActions maps get-price-quote include items to market API actions.
var QuoteIncludeActions = map[string]string{
	"tokenData":     "fetchGetTokenData",
	"nftMarketData": "fetchGetNftPrices",
	"saleInfo":      "fetchNftSalesInfo",
	"txFee":         "fetchTransactionFee",
}

// DefaultQuoteInclude is used when the payload has no include list.
var DefaultQuoteInclude = []string{"tokenData", "nftMarketData", "saleInfo", "txFee"}

var p0Handlers = map[string]Handler{
	skills.CreateCollection: createCollection,
	skills.CreateItem:       createItem,
	skills.BatchCreateItems: batchCreateItems,
	skills.ListItem:         contractStep(skills.ContractMarket, "ListWithFixedPrice"),
	skills.BuyNow:           buyNow,
	skills.MakeOffer:        contractStep(skills.ContractMarket, "MakeOffer"),
	skills.DealOffer:        contractStep(skills.ContractMarket, "Deal"),
	skills.CancelOffer:      cancelOffer,
	skills.CancelListing:    cancelListing,
	skills.TransferItem:     contractStep(skills.ContractMultitoken, "Transfer"),
	skills.GetPriceQuote:    getPriceQuote,
}

// contractStep sends the whole payload to one contract method on
// payload.chain and returns the transaction id.
func contractStep(skill, method string) Handler {
	return func(ctx context.Context, call Call, h Helpers) envelope.Envelope {
		payload := call.Payload()
		res := h.InvokeContract(ctx, call, skill, method, payload, str(payload["chain"]))
		if res.IsFailure() {
			return res
		}
		return txOnly(res, call.TraceID)
	}
}

func createCollection(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	issueChain := str(payload["issueChainId"])

	res := h.InvokeContract(ctx, call, skills.ContractMultitoken, "Create", payload, issueChain)
	if res.IsFailure() {
		return res
	}
	return envelope.Success(map[string]any{
		"transactionId":    envelope.TransactionID(res.Data),
		"symbol":           payload["symbol"],
		"crossChainSynced": issueChain == routing.ChainAELF || call.DryRun,
	}, call.TraceID)
}

func createItem(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	issueChain := str(payload["issueChainId"])

	res := h.InvokeContract(ctx, call, skills.ContractMultitoken, "Create", payload, issueChain)
	if res.IsFailure() {
		return res
	}
	txID := envelope.TransactionID(res.Data)
	synced := issueChain == routing.ChainAELF || call.DryRun

	var warnings []string
	if !call.DryRun && issueChain != "" && issueChain != routing.ChainAELF {
		sync := h.InvokeAPI(ctx, call, skills.APISync, "fetchSyncCollection", map[string]any{
			"fromChainId": routing.ChainAELF,
			"toChainId":   issueChain,
			"symbol":      payload["symbol"],
			"txHash":      txID,
		})
		if sync.IsFailure() {
			warnings = append(warnings, "Cross-chain sync degraded: "+sync.Message)
		} else {
			synced = true
		}
	}

	return envelope.Success(map[string]any{
		"transactionId":    txID,
		"symbol":           payload["symbol"],
		"issued":           true,
		"crossChainSynced": synced,
	}, call.TraceID, warnings...)
}

func batchCreateItems(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	res := h.InvokeContract(ctx, call, skills.ContractProxy, "BatchCreateNFT", payload, str(payload["chain"]))
	if res.IsFailure() {
		return res
	}
	count := 0
	if items, ok := payload["items"].([]any); ok {
		count = len(items)
	}
	return envelope.Success(map[string]any{
		"transactionId": envelope.TransactionID(res.Data),
		"count":         count,
	}, call.TraceID)
}

func buyNow(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	res := h.InvokeContract(ctx, call, skills.ContractMarket, "BatchBuyNow", payload, str(payload["chain"]))
	if res.IsFailure() {
		return res
	}
	return envelope.Success(map[string]any{
		"transactionId": envelope.TransactionID(res.Data),
		"partialFailed": false,
	}, call.TraceID)
}

// marketArgs returns payload.params when set, else the payload itself.
func marketArgs(payload map[string]any) map[string]any {
	if params, ok := payload["params"].(map[string]any); ok {
		return params
	}
	return payload
}

func cancelOffer(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	method := "CancelOfferListByExpireTime"
	if str(payload["mode"]) == "batch" {
		method = "BatchCancelOfferList"
	}
	res := h.InvokeContract(ctx, call, skills.ContractMarket, method, marketArgs(payload), str(payload["chain"]))
	if res.IsFailure() {
		return res
	}
	return txOnly(res, call.TraceID)
}

func cancelListing(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	var method string
	switch str(payload["mode"]) {
	case "batch", "batchDelist":
		method = "BatchDeList"
	case "batchCancelList":
		method = "BatchCancelList"
	default:
		method = "Delist"
	}
	res := h.InvokeContract(ctx, call, skills.ContractMarket, method, marketArgs(payload), str(payload["chain"]))
	if res.IsFailure() {
		return res
	}
	return txOnly(res, call.TraceID)
}

// getPriceQuote gathers the requested market data. Each item is optional:
// a failed lookup becomes a warning.
func getPriceQuote(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	payload := call.Payload()
	include := DefaultQuoteInclude
	if list, ok := payload["include"].([]any); ok {
		include = make([]string, 0, len(list))
		for _, it := range list {
			include = append(include, str(it))
		}
	}

	data := map[string]any{}
	var warnings []string
	for _, item := range include {
		action, ok := QuoteIncludeActions[item]
		if !ok {
			continue
		}
		res := h.InvokeAPI(ctx, call, skills.APIMarket, action, compact(map[string]any{
			"symbol": payload["symbol"],
			"nftId":  payload["nftId"],
			"chain":  payload["chain"],
		}))
		if res.IsFailure() {
			warnings = append(warnings, item+" degraded: "+res.Message)
			continue
		}
		value, present := res.Data["result"]
		if !present || value == nil {
			continue
		}
		key := item
		if item == "nftMarketData" {
			key = "marketPrice"
		}
		data[key] = value
	}

	if tokenData, ok := data["tokenData"]; ok && truthy(tokenData) {
		if _, taken := data["tokenPrice"]; !taken {
			data["tokenPrice"] = tokenData
			delete(data, "tokenData")
		}
	}
	return envelope.Success(data, call.TraceID, warnings...)
}
