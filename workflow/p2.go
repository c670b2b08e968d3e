package workflow

import (
	"context"

	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// AIRetryActions maps ai-retry actions to AI API actions.
var AIRetryActions = map[string]string{
	"retryByTransactionId": "fetchRetryGenerateAIArts",
	"listFailed":           "fetchFailedAIArtsNFT",
	"listImages":           "fetchAiImages",
	"updateImageStatus":    "updateAiImagesStatus",
}

// PlatformActions maps create-platform-nft actions to platform API actions.
var PlatformActions = map[string]string{
	"create": "fetchCreatePlatformNFT",
	"info":   "fetchCreatePlatformNFTInfo",
}

// MiniappAPIActions maps off-chain miniapp actions to miniapp API actions.
var MiniappAPIActions = map[string]string{
	"userInfo":       "fetchMiniAppUserInfo",
	"watering":       "fetchMiniAppWatering",
	"claim":          "fetchMiniAppClaim",
	"levelUpdate":    "fetchMiniAppLevelUpdate",
	"activityList":   "fetchMiniAppActivityList",
	"activityDetail": "fetchMiniAppActivityDetail",
	"pointsConvert":  "fetchMiniAppPointsConvert",
	"friendList":     "fetchMiniAppFriendList",
}

// MiniappOnchainMethods maps on-chain miniapp actions to contract methods.
var MiniappOnchainMethods = map[string]string{
	"onchainAddPoints":    "AddTreePoints",
	"onchainLevelUpgrade": "TreeLevelUpgrade",
	"onchainClaimPoints":  "ClaimTreePoints",
}

// CollectionActions maps query-collections actions to discovery API actions.
var CollectionActions = map[string]string{
	"collections":            "fetchCollections",
	"searchCollections":      "fetchSearchCollections",
	"recommendedCollections": "fetchRecommendedCollections",
	"collectionInfo":         "fetchNFTCollectionInfo",
	"compositeNftInfos":      "fetchCompositeNftInfos",
	"traits":                 "fetchCollectionAllTraitsInfos",
	"generation":             "fetchCollectionGenerationInfos",
	"rarity":                 "fetchCollectionRarityInfos",
	"activities":             "fetchCollectionActivities",
	"trending":               "fetchTrendingCollections",
	"hot":                    "fetchHotNFTs",
}

// nftAPIActions are collection queries served by the NFT API.
var nftAPIActions = map[string]bool{
	"fetchHotNFTs":           true,
	"fetchCompositeNftInfos": true,
}

// WatchSignalActions maps watch-market-signals actions to realtime API actions.
var WatchSignalActions = map[string]string{
	"subscribe":    "registerHandler",
	"unsubscribe":  "unRegisterHandler",
	"pullSnapshot": "snapshot",
}

var p2Handlers = map[string]Handler{
	skills.AIGenerate:         aiGenerate,
	skills.AIRetry:            apiQuery(skills.APIAI, AIRetryActions),
	skills.CreatePlatformNFT:  apiQuery(skills.APIPlatform, PlatformActions),
	skills.MiniappAction:      miniappAction,
	skills.UpdateProfile:      updateProfile,
	skills.QueryCollections:   queryCollections,
	skills.WatchMarketSignals: watchSignals,
}

func aiGenerate(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	res := h.InvokeAPI(ctx, call, skills.APIAI, "fetchGenerate", call.Payload())
	if res.IsFailure() {
		return res
	}

	result := resultOf(res)
	obj, _ := result.(map[string]any)
	var items any = []any{}
	switch {
	case truthy(obj["items"]):
		items = obj["items"]
	case truthy(result):
		items = result
	}
	return envelope.Success(map[string]any{
		"transactionId": str(obj["transactionId"]),
		"items":         items,
	}, call.TraceID)
}

func miniappAction(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	action := call.Action()
	if method, ok := MiniappOnchainMethods[action]; ok {
		res := h.InvokeContract(ctx, call, skills.ContractMiniapp, method, call.Params(), paramsChain(call))
		if res.IsFailure() {
			return res
		}
		return txOnly(res, call.TraceID)
	}

	res := h.InvokeAPI(ctx, call, skills.APIMiniapp, MiniappAPIActions[action], call.Params())
	if res.IsFailure() {
		return res
	}
	return envelope.Success(resultObject(res), call.TraceID)
}

func updateProfile(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	res := h.InvokeAPI(ctx, call, skills.APIUser, "saveUserSettings", call.Payload())
	if res.IsFailure() {
		return res
	}
	return envelope.Success(resultObject(res), call.TraceID)
}

func queryCollections(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	action := CollectionActions[call.Action()]
	skill := skills.APICollection
	if nftAPIActions[action] {
		skill = skills.APINFT
	}
	res := h.InvokeAPI(ctx, call, skill, action, call.Params())
	if res.IsFailure() {
		return res
	}
	return envelope.Success(resultObject(res), call.TraceID)
}

func watchSignals(ctx context.Context, call Call, h Helpers) envelope.Envelope {
	params := make(map[string]any)
	for k, v := range call.Params() {
		params[k] = v
	}
	params["channels"] = call.Input["channels"]
	params["address"] = call.Input["address"]

	res := h.InvokeAPI(ctx, call, skills.APIRealtime, WatchSignalActions[call.Action()], compact(params))
	if res.IsFailure() {
		return res
	}

	var events any = []any{}
	if r := resultOf(res); truthy(r) {
		events = r
	}
	return envelope.Success(map[string]any{"events": events}, call.TraceID)
}
