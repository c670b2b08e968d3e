package config_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eforest-finance/forest-agent-kit/apiclient"
	"github.com/eforest-finance/forest-agent-kit/config"
)

var boundVars = []string{
	"EFOREST_NETWORK", "AELF_ENV",
	"EFOREST_API_URL", "AELF_API_URL",
	"EFOREST_CMS_URL", "EFOREST_CONNECT_URL",
	"EFOREST_API_TOKEN", "FOREST_API_TOKEN",
	"EFOREST_RPC_URL", "AELF_RPC_URL",
	"EFOREST_RPC_URL_TDVV", "AELF_RPC_URL_TDVV",
	"EFOREST_RPC_URL_TDVW", "AELF_RPC_URL_TDVW",
	"EFOREST_SKIP_CMS", "EFOREST_CONTRACTS_JSON",
	"EFOREST_LEDGER_URL", "EFOREST_LEDGER_TOKEN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range boundVars {
		t.Setenv(k, "")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func load(t *testing.T, opts ...config.LoadOption) *config.Network {
	t.Helper()
	base := []config.LoadOption{config.WithConfigPaths(t.TempDir()), config.WithLogger(quietLogger())}
	n, err := config.Load(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return n
}

func Test_Load_Presets(t *testing.T) {
	clearEnv(t)

	main := load(t, config.WithoutCMS())
	assert.Equal(t, "mainnet", main.Env)
	assert.Equal(t, "https://www.eforest.finance/api", main.APIURL)
	assert.Equal(t, "https://aelf-public-node.aelf.io", main.RPCURL("AELF"))
	assert.Equal(t, "https://tdvv-public-node.aelf.io", main.RPCURL("tdvv"))
	assert.Empty(t, main.RPCURL("tDVW"))
	assert.Empty(t, main.Contracts)

	test := load(t, config.WithoutCMS(), config.WithEnv("testnet"))
	assert.Equal(t, "https://test.eforest.finance/cms", test.CMSURL)
	assert.Equal(t, "https://tdvw-test-node.aelf.io", test.RPCURL("tDVW"))
}

func Test_Load_UnknownEnv(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(context.Background(), config.WithEnv("devnet"), config.WithoutCMS())
	assert.ErrorIs(t, err, config.ErrUnknownEnv)
	assert.ErrorContains(t, err, `"devnet"`)
}

func Test_Load_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AELF_ENV", "testnet")
	t.Setenv("AELF_API_URL", "https://aelf-api.example")
	t.Setenv("EFOREST_RPC_URL", "https://main.example")
	t.Setenv("AELF_RPC_URL", "https://ignored.example")
	t.Setenv("AELF_RPC_URL_TDVV", "https://side.example")
	t.Setenv("EFOREST_API_TOKEN", "tok")
	t.Setenv("EFOREST_SKIP_CMS", "true")
	t.Setenv("EFOREST_CONTRACTS_JSON", `{"nftMarketMainAddress":"2abc"}`)
	t.Setenv("EFOREST_LEDGER_URL", "https://wallet.example")
	t.Setenv("EFOREST_LEDGER_TOKEN", "wallet-tok")

	n := load(t)
	assert.Equal(t, "testnet", n.Env)
	assert.Equal(t, "https://aelf-api.example", n.APIURL)
	assert.Equal(t, "https://main.example", n.RPCURL("AELF"))
	assert.Equal(t, "https://side.example", n.RPCURL("tDVV"))
	assert.Equal(t, "tok", n.APIToken)
	assert.Equal(t, "2abc", n.Contracts["nftMarketMainAddress"])
	assert.Equal(t, "https://wallet.example", n.LedgerURL)
	assert.Equal(t, "wallet-tok", n.LedgerToken)
}

func Test_Load_OptionsBeatEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("EFOREST_NETWORK", "testnet")
	t.Setenv("EFOREST_RPC_URL", "https://env.example")

	n := load(t, config.WithoutCMS(), config.WithEnv("mainnet"), config.WithRPCURL("https://flag.example"), config.WithAPIURL("https://api.flag"))
	assert.Equal(t, "mainnet", n.Env)
	assert.Equal(t, "https://flag.example", n.RPCURL("AELF"))
	assert.Equal(t, "https://api.flag", n.APIURL)
}

func Test_Load_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "forest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: testnet
api_url: https://file.example/api
skip_cms: true
contracts_json: '{"nftDropSideAddress":"drop"}'
`), 0o600))

	t.Run("explicit file", func(t *testing.T) {
		n := load(t, config.WithConfigFile(path))
		assert.Equal(t, "testnet", n.Env)
		assert.Equal(t, "https://file.example/api", n.APIURL)
		assert.Equal(t, "drop", n.Contracts["nftDropSideAddress"])
	})

	t.Run("search path", func(t *testing.T) {
		n := load(t, config.WithConfigPaths(dir))
		assert.Equal(t, "https://file.example/api", n.APIURL)
	})

	t.Run("environment beats file", func(t *testing.T) {
		t.Setenv("EFOREST_API_URL", "https://env.example/api")
		n := load(t, config.WithConfigFile(path))
		assert.Equal(t, "https://env.example/api", n.APIURL)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := config.Load(context.Background(), config.WithConfigFile(filepath.Join(dir, "nope.yaml")))
		assert.Error(t, err)
	})
}

func Test_Load_CMS(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cms/items/config", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":1,"data":{"nftMarketSideAddress":"mkt","rpcUrlTDVW":"https://cms-tdvw.example","rpcUrlAELF":"https://cms-aelf.example"}}}`))
	}))
	defer srv.Close()
	t.Setenv("EFOREST_CMS_URL", srv.URL+"/cms")

	n := load(t)
	assert.Equal(t, "mkt", n.Contracts["nftMarketSideAddress"])
	assert.Equal(t, "https://cms-tdvw.example", n.RPCURL("tDVW"), "CMS fills chains without a preset node")
	assert.Equal(t, "https://aelf-public-node.aelf.io", n.RPCURL("AELF"), "preset beats CMS")
}

func Test_Load_CMSFailureIsNotFatal(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("EFOREST_CMS_URL", srv.URL)

	n := load(t)
	assert.Empty(t, n.Contracts)
	assert.NotEmpty(t, n.RPCURL("AELF"))
}

func Test_FetchCMS_Unwrapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]any
	}{
		{name: "double wrapped", body: `{"data":{"data":{"a":"1"}}}`, want: map[string]any{"a": "1"}},
		{name: "single wrapped", body: `{"data":{"a":"1"}}`, want: map[string]any{"a": "1"}},
		{name: "bare", body: `{"a":"1"}`, want: map[string]any{"a": "1"}},
		{name: "not an object", body: `[1]`, want: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := config.FetchCMS(context.Background(), apiclient.New(srv.URL, apiclient.WithLogger(quietLogger())))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Network_RPCURLNil(t *testing.T) {
	var n *config.Network
	assert.Empty(t, n.RPCURL("AELF"))
}

func Test_LoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FOREST_DOTENV_NEW=from-file\nFOREST_DOTENV_SET=from-file\n"), 0o600))

	t.Setenv("FOREST_DOTENV_SET", "from-env")
	t.Setenv("FOREST_DOTENV_NEW", "")
	require.NoError(t, os.Unsetenv("FOREST_DOTENV_NEW"))

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	t.Cleanup(func() { _ = os.Unsetenv("FOREST_DOTENV_NEW") })

	assert.Equal(t, "from-file", os.Getenv("FOREST_DOTENV_NEW"))
	assert.Equal(t, "from-env", os.Getenv("FOREST_DOTENV_SET"))
	assert.NoError(t, config.LoadDotEnv(filepath.Join(dir, "none")))
}
