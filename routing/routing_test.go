package routing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/routing"
	"github.com/eforest-finance/forest-agent-kit/schema"
	"github.com/eforest-finance/forest-agent-kit/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NormalizeChain(t *testing.T) {
	assert.Equal(t, "AELF", routing.NormalizeChain(""))
	assert.Equal(t, "AELF", routing.NormalizeChain("tdvv"))
	assert.Equal(t, "tDVV", routing.NormalizeChain("tDVV"))
	assert.Equal(t, "tDVW", routing.NormalizeChain("tDVW"))
}

func Test_ResolveAddress(t *testing.T) {
	contracts := map[string]any{
		"nftMarketMainAddress":   "  ",
		"marketMainAddress":      "market-main",
		"sideChainMarketAddress": "market-side",
		"mainChainAddress":       42,
		"tokenAdapterAddress":    "adapter",
		"dropSideAddress":        "drop-side",
	}

	tests := []struct {
		skill string
		chain string
		want  string
	}{
		{skills.ContractMarket, "AELF", "market-main"},
		{skills.ContractMarket, "tDVV", "market-side"},
		{skills.ContractMultitoken, "AELF", ""},
		{skills.ContractTokenAdapter, "AELF", "adapter"},
		{skills.ContractTokenAdapter, "tDVW", "adapter"},
		{skills.ContractDrop, "tDVV", "drop-side"},
		{skills.ContractDrop, "AELF", ""},
		{skills.APIMarket, "AELF", ""},
	}
	for _, tt := range tests {
		t.Run(tt.skill+"/"+tt.chain, func(t *testing.T) {
			assert.Equal(t, tt.want, routing.ResolveAddress(tt.skill, tt.chain, contracts))
		})
	}
}

func Test_AddressKeys_AllContractSkills(t *testing.T) {
	for _, d := range skills.Default().List() {
		if d.Kind != skills.KindMethodContract {
			continue
		}
		assert.NotEmpty(t, routing.AddressKeys(d.Name, "AELF"), d.Name)
		assert.NotEmpty(t, routing.AddressKeys(d.Name, "tDVV"), d.Name)
	}
}

func Test_ExecutionModeFor(t *testing.T) {
	tests := []struct {
		skill  string
		method string
		want   routing.Mode
	}{
		{skills.ContractMarket, "ListWithFixedPrice", routing.ModeSend},
		{skills.ContractMarket, "GetListedNFTInfoList", routing.ModeView},
		{skills.ContractMultitoken, "Transfer", routing.ModeSend},
		{skills.ContractMultitoken, "GetBalance", routing.ModeView},
		{skills.ContractMiniapp, "GetAnything", routing.ModeView},
		{skills.ContractWhitelist, "EnableWhitelist", routing.ModeSend},
		{"aelf-forest-unknown", "Getter", routing.ModeView},
		{"aelf-forest-unknown", "getBalance", routing.ModeSend},
	}
	for _, tt := range tests {
		t.Run(tt.skill+"."+tt.method, func(t *testing.T) {
			got := routing.ExecutionModeFor(tt.skill, tt.method)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, routing.ExecutionModeFor(tt.skill, tt.method))
		})
	}
}

func Test_ResolveRoute(t *testing.T) {
	const skill, action = "aelf-forest-api-market", "fetchTokens"

	tests := []struct {
		name   string
		snap   config.Snapshot
		want   routing.Route
		wantOK bool
	}{
		{name: "no map", snap: config.Snapshot{}},
		{name: "invalid json", snap: config.Snapshot{routing.EnvActionMap: "{"}},
		{
			name:   "compound string",
			snap:   config.Snapshot{routing.EnvActionMap: `{"aelf-forest-api-market:fetchTokens":"/market/tokens"}`},
			want:   routing.Route{Method: "GET", Path: "/market/tokens", Auth: true},
			wantOK: true,
		},
		{
			name:   "nested object",
			snap:   config.Snapshot{routing.EnvActionMap: `{"aelf-forest-api-market":{"fetchTokens":{"method":"post","url":"https://x/y","auth":false}}}`},
			want:   routing.Route{Method: "POST", Path: "https://x/y", Auth: false},
			wantOK: true,
		},
		{
			name: "compound beats nested",
			snap: config.Snapshot{routing.EnvActionMap: `{
				"aelf-forest-api-market:fetchTokens": {"path": "/compound"},
				"aelf-forest-api-market": {"fetchTokens": "/nested"}
			}`},
			want:   routing.Route{Method: "GET", Path: "/compound", Auth: true},
			wantOK: true,
		},
		{
			name:   "empty compound falls through",
			snap:   config.Snapshot{routing.EnvActionMap: `{"aelf-forest-api-market:fetchTokens":"","aelf-forest-api-market":{"fetchTokens":"/nested"}}`},
			want:   routing.Route{Method: "GET", Path: "/nested", Auth: true},
			wantOK: true,
		},
		{
			name: "missing path",
			snap: config.Snapshot{routing.EnvActionMap: `{"aelf-forest-api-market:fetchTokens":{"method":"GET"}}`},
		},
		{
			name: "non route value",
			snap: config.Snapshot{routing.EnvActionMap: `{"aelf-forest-api-market:fetchTokens":7}`},
		},
		{
			name:   "legacy key",
			snap:   config.Snapshot{routing.EnvActionMapLegacy: `{"aelf-forest-api-market:fetchTokens":"/legacy"}`},
			want:   routing.Route{Method: "GET", Path: "/legacy", Auth: true},
			wantOK: true,
		},
		{
			name: "primary key wins",
			snap: config.Snapshot{
				routing.EnvActionMap:       `{"aelf-forest-api-market:fetchTokens":"/primary"}`,
				routing.EnvActionMapLegacy: `{"aelf-forest-api-market:fetchTokens":"/legacy"}`,
			},
			want:   routing.Route{Method: "GET", Path: "/primary", Auth: true},
			wantOK: true,
		},
		{
			name: "json array",
			snap: config.Snapshot{routing.EnvActionMap: `[]`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := routing.ResolveRoute(skill, action, tt.snap)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newStore(t *testing.T) *routing.FileStore {
	t.Helper()
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	store, err := routing.NewFileStore(reg)
	require.NoError(t, err)
	return store
}

func Test_FileStore_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
routes:
  "aelf-forest-api-market:fetchTokens": /market/tokens
skills:
  aelf-forest-api-sync:
    fetchSyncCollection:
      method: POST
      path: /sync/collection
      auth: false
`), 0o600))

	store := newStore(t)
	file, err := store.Load(path)
	require.NoError(t, err)

	raw, err := file.ActionMapJSON()
	require.NoError(t, err)
	snap := config.Snapshot{routing.EnvActionMap: raw}

	got, ok := routing.ResolveRoute("aelf-forest-api-market", "fetchTokens", snap)
	require.True(t, ok)
	assert.Equal(t, routing.Route{Method: "GET", Path: "/market/tokens", Auth: true}, got)

	got, ok = routing.ResolveRoute("aelf-forest-api-sync", "fetchSyncCollection", snap)
	require.True(t, ok)
	assert.Equal(t, routing.Route{Method: "POST", Path: "/sync/collection", Auth: false}, got)
}

func Test_FileStore_LoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"routes":{"aelf-forest-api-nft:fetchNftInfo":{"path":"/nft/info"}}}`), 0o600))

	file, err := newStore(t).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/nft/info", file.Routes["aelf-forest-api-nft:fetchNftInfo"].Path)
}

func Test_FileStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	store := newStore(t)

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"empty", "{}", "no routes"},
		{"bad method", "routes:\n  \"a:b\": {method: PATCH, path: /x}\n", "invalid route file"},
		{"bad key", "routes:\n  nocolon: /x\n", "want skill:action"},
		{"no path", "skills:\n  a:\n    b: {method: GET}\n", "has no path"},
		{"not yaml", "routes: [", "decoding route file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := store.Load(path)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}

	_, err := store.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func Test_FileStore_SaveRoundTrip(t *testing.T) {
	store := newStore(t)
	noAuth := false
	in := &routing.RouteFile{
		Routes: map[string]routing.RouteSpec{
			"aelf-forest-api-user:fetchUserInfo": {Method: "GET", Path: "/user/info", Auth: &noAuth},
		},
	}
	path := filepath.Join(t.TempDir(), "nested", "routes.yaml")
	require.NoError(t, store.Save(in, path))

	out, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in.Routes, out.Routes)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "aelf-forest-api-user:fetchUserInfo")
	assert.Contains(t, string(raw), "path: /user/info")
}

func Test_FileStore_SaveIntoFile(t *testing.T) {
	store := newStore(t)
	in := &routing.RouteFile{
		Routes: map[string]routing.RouteSpec{"aelf-forest-api-user:fetchUserInfo": {Path: "/user/info"}},
	}
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := store.Save(in, filepath.Join(blocker, "routes.yaml"))
	assert.Error(t, err)
}

func Test_NewFileStore_SharedRegistry(t *testing.T) {
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	_, err = routing.NewFileStore(reg)
	require.NoError(t, err)
	_, err = routing.NewFileStore(reg)
	require.NoError(t, err)
	assert.True(t, reg.HasSchema(routing.RouteFileSchemaRef))
}
