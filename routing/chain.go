// Package routing resolves where a skill call goes: the contract address and
// execution mode for ledger calls, and the HTTP route for backend actions.
package routing

// Chain ids understood by the marketplace.
const (
	ChainAELF = "AELF"
	ChainTDVV = "tDVV"
	ChainTDVW = "tDVW"
)

// Chains lists every supported chain id.
var Chains = []string{ChainAELF, ChainTDVV, ChainTDVW}

// NormalizeChain returns chain when it is supported and AELF otherwise.
func NormalizeChain(chain string) string {
	switch chain {
	case ChainAELF, ChainTDVV, ChainTDVW:
		return chain
	default:
		return ChainAELF
	}
}

// IsMainChain reports whether chain is the AELF main chain.
func IsMainChain(chain string) bool {
	return chain == ChainAELF
}
