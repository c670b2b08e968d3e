package routing

import (
	"strings"

	"github.com/eforest-finance/forest-agent-kit/skills"
)

type addressCandidates struct {
	main []string
	side []string
}

// contractAddressKeys lists, per contract skill, the contract table keys
// tried in order on the main chain and on side chains.
var contractAddressKeys = map[string]addressCandidates{
	skills.ContractMarket: {
		main: []string{"nftMarketMainAddress", "marketMainAddress", "marketAddress", "nftMarketAddress"},
		side: []string{"nftMarketSideAddress", "marketSideAddress", "sideChainMarketAddress"},
	},
	skills.ContractMultitoken: {
		main: []string{"mainChainAddress"},
		side: []string{"sideChainAddress"},
	},
	skills.ContractTokenAdapter: {
		main: []string{"tokenAdapterMainAddress", "tokenAdapterAddress"},
		side: []string{"tokenAdapterMainAddress", "tokenAdapterAddress"},
	},
	skills.ContractProxy: {
		main: []string{"proxyMainAddress"},
		side: []string{"proxySideAddress"},
	},
	skills.ContractAuction: {
		main: []string{"auctionMainAddress", "seedAuctionMainAddress", "auctionAddress"},
		side: []string{"auctionSideAddress", "seedAuctionSideAddress"},
	},
	skills.ContractDrop: {
		main: []string{"dropMainAddress", "dropAddress"},
		side: []string{"dropSideAddress"},
	},
	skills.ContractWhitelist: {
		main: []string{"whitelistMainAddress", "whitelistAddress"},
		side: []string{"whitelistSideAddress"},
	},
	skills.ContractMiniapp: {
		main: []string{"miniAppMainAddress", "treePointsMainAddress", "miniAppAddress"},
		side: []string{"miniAppSideAddress", "treePointsSideAddress"},
	},
}

// AddressKeys returns the contract table keys consulted for skill on chain.
func AddressKeys(skill, chain string) []string {
	c, ok := contractAddressKeys[skill]
	if !ok {
		return nil
	}
	if IsMainChain(chain) {
		return c.main
	}
	return c.side
}

// ResolveAddress returns the first non-blank string among the candidate
// keys for skill on chain, or "" when none is configured.
func ResolveAddress(skill, chain string, contracts map[string]any) string {
	return PickAddress(contracts, AddressKeys(skill, chain))
}

// PickAddress returns the first value under keys that is a non-blank string.
func PickAddress(contracts map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := contracts[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
