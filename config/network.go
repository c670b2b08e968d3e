package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eforest-finance/forest-agent-kit/apiclient"
)

// Network is the resolved endpoint and contract configuration for one env.
type Network struct {
	RPCURLs    map[string]string `json:"rpcUrls"`
	Contracts  map[string]any    `json:"contracts"`
	Env        string            `json:"env"`
	APIURL     string            `json:"apiUrl"`
	CMSURL     string            `json:"cmsUrl"`
	ConnectURL string            `json:"connectUrl"`
	APIToken   string            `json:"-"`

	// LedgerURL is the wallet gateway that signs sends and encodes views.
	LedgerURL   string `json:"ledgerUrl,omitempty"`
	LedgerToken string `json:"-"`
}

// RPCURL returns the node URL for chain, matching the chain id
// case-insensitively. Empty when unconfigured.
func (n *Network) RPCURL(chain string) string {
	if n == nil {
		return ""
	}
	if u, ok := n.RPCURLs[chain]; ok {
		return u
	}
	for k, u := range n.RPCURLs {
		if strings.EqualFold(k, chain) {
			return u
		}
	}
	return ""
}

// Preset holds the public endpoints of a known env.
type Preset struct {
	APIURL     string
	CMSURL     string
	ConnectURL string
	RPCAELF    string
	RPCTDVV    string
	RPCTDVW    string
}

// Presets are the built-in endpoints. mainnet has no tDVW node.
var Presets = map[string]Preset{
	"mainnet": {
		APIURL:     "https://www.eforest.finance/api",
		CMSURL:     "https://www.eforest.finance/cms",
		ConnectURL: "https://www.eforest.finance/connect",
		RPCAELF:    "https://aelf-public-node.aelf.io",
		RPCTDVV:    "https://tdvv-public-node.aelf.io",
	},
	"testnet": {
		APIURL:     "https://test.eforest.finance/api",
		CMSURL:     "https://test.eforest.finance/cms",
		ConnectURL: "https://test.eforest.finance/connect",
		RPCAELF:    "https://aelf-test-node.aelf.io",
		RPCTDVV:    "https://tdvv-test-node.aelf.io",
		RPCTDVW:    "https://tdvw-test-node.aelf.io",
	},
}

// ErrUnknownEnv is returned by Load for an env without a preset.
var ErrUnknownEnv = errors.New("unknown env")

// Network returns the preset as a Network with an empty contract table.
func (p Preset) Network(env string) *Network {
	return &Network{
		Env:        env,
		APIURL:     p.APIURL,
		CMSURL:     p.CMSURL,
		ConnectURL: p.ConnectURL,
		RPCURLs: map[string]string{
			"AELF": p.RPCAELF,
			"tDVV": p.RPCTDVV,
			"tDVW": p.RPCTDVW,
		},
		Contracts: map[string]any{},
	}
}

// Keys read by Load. Each is bound to the EFOREST_ variable and, where one
// exists, its AELF_ fallback.
const (
	keyNetwork       = "network"
	keyAPIURL        = "api_url"
	keyCMSURL        = "cms_url"
	keyConnectURL    = "connect_url"
	keyAPIToken      = "api_token"
	keyRPCURL        = "rpc_url"
	keyRPCURLTDVV    = "rpc_url_tdvv"
	keyRPCURLTDVW    = "rpc_url_tdvw"
	keySkipCMS       = "skip_cms"
	keyContractsJSON = "contracts_json"
	keyLedgerURL     = "ledger_url"
	keyLedgerToken   = "ledger_token"
)

var envBindings = map[string][]string{
	keyNetwork:       {"EFOREST_NETWORK", "AELF_ENV"},
	keyAPIURL:        {"EFOREST_API_URL", "AELF_API_URL"},
	keyCMSURL:        {"EFOREST_CMS_URL"},
	keyConnectURL:    {"EFOREST_CONNECT_URL"},
	keyAPIToken:      {"EFOREST_API_TOKEN", "FOREST_API_TOKEN"},
	keyRPCURL:        {"EFOREST_RPC_URL", "AELF_RPC_URL"},
	keyRPCURLTDVV:    {"EFOREST_RPC_URL_TDVV", "AELF_RPC_URL_TDVV"},
	keyRPCURLTDVW:    {"EFOREST_RPC_URL_TDVW", "AELF_RPC_URL_TDVW"},
	keySkipCMS:       {"EFOREST_SKIP_CMS"},
	keyContractsJSON: {"EFOREST_CONTRACTS_JSON"},
	keyLedgerURL:     {"EFOREST_LEDGER_URL"},
	keyLedgerToken:   {"EFOREST_LEDGER_TOKEN"},
}

type loadConfig struct {
	httpClient  *http.Client
	logger      *slog.Logger
	v           *viper.Viper
	env         string
	apiURL      string
	rpcURL      string
	configFile  string
	configPaths []string
	skipCMS     bool
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithEnv selects the env, overriding EFOREST_NETWORK and the config file.
func WithEnv(env string) LoadOption {
	return func(c *loadConfig) { c.env = env }
}

// WithAPIURL overrides the backend API URL.
func WithAPIURL(u string) LoadOption {
	return func(c *loadConfig) { c.apiURL = u }
}

// WithRPCURL overrides the main chain node URL.
func WithRPCURL(u string) LoadOption {
	return func(c *loadConfig) { c.rpcURL = u }
}

// WithConfigFile reads settings from path instead of searching for forest.yaml.
func WithConfigFile(path string) LoadOption {
	return func(c *loadConfig) { c.configFile = path }
}

// WithConfigPaths sets the directories searched for forest.yaml.
func WithConfigPaths(dirs ...string) LoadOption {
	return func(c *loadConfig) { c.configPaths = dirs }
}

// WithoutCMS skips the remote contract table fetch.
func WithoutCMS() LoadOption {
	return func(c *loadConfig) { c.skipCMS = true }
}

// WithHTTPClient sets the client used for the CMS fetch.
func WithHTTPClient(hc *http.Client) LoadOption {
	return func(c *loadConfig) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LoadOption {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithViper reads settings from an existing viper instance, such as one
// bound to CLI flags.
func WithViper(v *viper.Viper) LoadOption {
	return func(c *loadConfig) { c.v = v }
}

// Load resolves the Network. Priority, high to low: options, environment
// variables, config file, preset, CMS. A CMS failure is logged and leaves
// the contract table empty.
func Load(ctx context.Context, opts ...LoadOption) (*Network, error) {
	cfg := loadConfig{
		logger:      slog.Default(),
		configPaths: defaultConfigPaths(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	v, err := cfg.viper()
	if err != nil {
		return nil, err
	}

	env := firstNonEmpty(cfg.env, v.GetString(keyNetwork), "mainnet")
	preset, ok := Presets[env]
	if !ok {
		return nil, fmt.Errorf("%w %q: use \"mainnet\" or \"testnet\"", ErrUnknownEnv, env)
	}

	n := preset.Network(env)
	n.APIURL = firstNonEmpty(cfg.apiURL, v.GetString(keyAPIURL), n.APIURL)
	n.CMSURL = firstNonEmpty(v.GetString(keyCMSURL), n.CMSURL)
	n.ConnectURL = firstNonEmpty(v.GetString(keyConnectURL), n.ConnectURL)
	n.APIToken = v.GetString(keyAPIToken)
	n.LedgerURL = v.GetString(keyLedgerURL)
	n.LedgerToken = v.GetString(keyLedgerToken)

	if !cfg.skipCMS && !v.GetBool(keySkipCMS) && n.CMSURL != "" {
		cms, err := FetchCMS(ctx, apiclient.New(n.CMSURL,
			apiclient.WithHTTPClient(cfg.httpClient),
			apiclient.WithTimeout(10*time.Second),
			apiclient.WithLogger(cfg.logger)))
		if err != nil {
			cfg.logger.Warn("cms config unavailable", slog.String("cms_url", n.CMSURL), slog.Any("error", err))
		} else {
			n.Contracts = cms
		}
	}

	if raw := v.GetString(keyContractsJSON); raw != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return nil, fmt.Errorf("parse %s: %w", keyContractsJSON, err)
		}
		for k, val := range extra {
			n.Contracts[k] = val
		}
	}

	n.RPCURLs = map[string]string{
		"AELF": firstNonEmpty(cfg.rpcURL, v.GetString(keyRPCURL), preset.RPCAELF, cmsString(n.Contracts, "rpcUrlAELF")),
		"tDVV": firstNonEmpty(v.GetString(keyRPCURLTDVV), preset.RPCTDVV, cmsString(n.Contracts, "rpcUrlTDVV")),
		"tDVW": firstNonEmpty(v.GetString(keyRPCURLTDVW), preset.RPCTDVW, cmsString(n.Contracts, "rpcUrlTDVW")),
	}
	return n, nil
}

func (c *loadConfig) viper() (*viper.Viper, error) {
	v := c.v
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("EFOREST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if c.configFile != "" {
		v.SetConfigFile(c.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", c.configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("forest")
	v.SetConfigType("yaml")
	for _, dir := range c.configPaths {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".forest"))
	}
	return paths
}

// FetchCMS reads the remote contract table from GET <cms>/items/config.
// The document is wrapped twice ({"data":{"data":{...}}}); whichever level
// is present is returned.
func FetchCMS(ctx context.Context, c *apiclient.Client) (map[string]any, error) {
	body, err := c.DoRaw(ctx, apiclient.Request{Path: "/items/config"})
	if err != nil {
		return nil, fmt.Errorf("fetch cms config: %w", err)
	}
	root, _ := body.(map[string]any)
	if outer, ok := root["data"].(map[string]any); ok {
		if inner, ok := outer["data"].(map[string]any); ok {
			return inner, nil
		}
		return outer, nil
	}
	if root != nil {
		return root, nil
	}
	return map[string]any{}, nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped;
// with no paths it tries ./.env.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func cmsString(cms map[string]any, key string) string {
	s, _ := cms[key].(string)
	return s
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
