package routing

import (
	"strings"

	"github.com/eforest-finance/forest-agent-kit/skills"
)

// Mode is how a contract method is executed.
type Mode string

const (
	// ModeSend signs and broadcasts a transaction.
	ModeSend Mode = "send"
	// ModeView performs a read-only call.
	ModeView Mode = "view"
)

var viewMethods = map[string]map[string]struct{}{
	skills.ContractMarket:       set("GetListedNFTInfoList", "GetTotalOfferAmount", "GetTotalEffectiveListedNFTAmount"),
	skills.ContractMultitoken:   set("GetBalance", "GetTokenInfo", "GetAllowance"),
	skills.ContractTokenAdapter: set(),
	skills.ContractProxy:        set("GetProxyAccountByProxyAccountAddress"),
	skills.ContractAuction:      set(),
	skills.ContractDrop:         set(),
	skills.ContractWhitelist: set(
		"GetAddressFromWhitelist",
		"GetWhitelist",
		"GetTagInfoFromWhitelist",
		"GetWhitelistDetail",
		"GetWhitelistId",
		"GetTagInfoListByWhitelist",
	),
	skills.ContractMiniapp: set(),
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// ExecutionModeFor returns ModeView for whitelisted read methods of skill
// and for any method named Get*, and ModeSend otherwise.
func ExecutionModeFor(skill, method string) Mode {
	if _, ok := viewMethods[skill][method]; ok {
		return ModeView
	}
	if strings.HasPrefix(method, "Get") {
		return ModeView
	}
	return ModeSend
}
