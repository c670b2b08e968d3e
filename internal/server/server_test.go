package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forest "github.com/eforest-finance/forest-agent-kit"
	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/internal/server"
	"github.com/eforest-finance/forest-agent-kit/policy"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

func newServer(t *testing.T, env map[string]string, opts ...server.Option) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := forest.New(
		forest.WithNetwork(&config.Network{
			Env:       "mainnet",
			RPCURLs:   map[string]string{"AELF": "http://aelf.invalid"},
			Contracts: map[string]any{"nftMarketMainAddress": "market-main"},
		}),
		forest.WithSnapshotSource(config.StaticSource(env)),
		forest.WithLogger(logger),
		forest.WithContractInvoker(forest.ContractInvokerFunc(func(ctx context.Context, req forest.ContractRequest) (any, error) {
			return map[string]any{"TransactionId": "tx-1"}, nil
		})),
	)
	srv := httptest.NewServer(server.New(d, append([]server.Option{server.WithLogger(logger)}, opts...)...).Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func Test_Health(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, len(skills.Default().Names()), body["skills"])
}

func Test_ListSkills(t *testing.T) {
	srv := newServer(t, nil)

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "all", status: http.StatusOK, count: len(skills.Default().List())},
		{name: "tier", query: "?tier=P0", status: http.StatusOK, count: len(skills.Default().ListByTier(skills.TierP0))},
		{name: "bad tier", query: "?tier=P9", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/skills" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Skills []skills.Definition `json:"skills"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Len(t, body.Skills, tt.count)
		})
	}
}

func Test_GetSkill(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/skills/" + skills.ListItem)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Skill       skills.Definition `json:"skill"`
		InputSchema map[string]any    `json:"inputSchema"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "forest.market.workflow", body.Skill.ServiceKey)
	assert.Contains(t, body.InputSchema, "allOf")

	missing, err := http.Get(srv.URL + "/api/skills/aelf-forest-nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func Test_Dispatch(t *testing.T) {
	srv := newServer(t, nil)

	resp, body := post(t, srv.URL+"/api/skills/"+skills.ContractMarket,
		`{"method":"Delist","args":{"symbol":"TREE-1"}}`,
		map[string]string{server.TraceHeader: "trace-http"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-http", resp.Header.Get(server.TraceHeader))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "trace-http", body["traceId"])
	assert.Equal(t, "tx-1", body["data"].(map[string]any)["transactionId"])
}

func Test_Dispatch_GeneratedTraceID(t *testing.T) {
	srv := newServer(t, nil)

	resp, body := post(t, srv.URL+"/api/skills/"+skills.ContractMarket, `{"method":"Delist","args":{}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["traceId"], 36)
	assert.Equal(t, body["traceId"], resp.Header.Get(server.TraceHeader))

	resp, body = post(t, srv.URL+"/api/skills/"+skills.ContractMarket,
		`{"method":"Delist","args":{},"traceId":"from-body"}`,
		map[string]string{server.TraceHeader: "from-header"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "from-body", body["traceId"])
}

func Test_Dispatch_NonStringTraceIDIsRejected(t *testing.T) {
	srv := newServer(t, nil)

	resp, body := post(t, srv.URL+"/api/skills/"+skills.ContractMarket,
		`{"method":"Delist","args":{},"traceId":42}`,
		map[string]string{server.TraceHeader: "from-header"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(envelope.CodeInvalidParams), body["code"])

	details, err := json.Marshal(body["details"])
	require.NoError(t, err)
	assert.Contains(t, string(details), `"/traceId"`)
}

func Test_Dispatch_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		skill  string
		body   string
		status int
		code   envelope.Code
	}{
		{
			name: "unknown skill", skill: "aelf-forest-nope", body: `{}`,
			status: http.StatusBadRequest, code: envelope.CodeInvalidParams,
		},
		{
			name: "schema failure", skill: skills.ContractMarket, body: `{"method":"Nope","args":{}}`,
			status: http.StatusBadRequest, code: envelope.CodeInvalidParams,
		},
		{
			name: "malformed json", skill: skills.ContractMarket, body: `{"method":`,
			status: http.StatusBadRequest, code: envelope.CodeInvalidParams,
		},
		{
			name: "disabled", env: map[string]string{policy.EnvDisableAll: "1"},
			skill: skills.ContractMarket, body: `{"method":"Delist","args":{}}`,
			status: http.StatusServiceUnavailable, code: envelope.CodeServiceDisabled,
		},
		{
			name: "missing route", skill: skills.APIMarket, body: `{"action":"fetchTokens"}`,
			status: http.StatusServiceUnavailable, code: envelope.CodeMaintenance,
		},
		{
			name: "missing address", skill: skills.ContractMarket, body: `{"method":"Delist","args":{},"chain":"tDVV"}`,
			status: http.StatusServiceUnavailable, code: envelope.CodeMaintenance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.env)
			resp, body := post(t, srv.URL+"/api/skills/"+tt.skill, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, string(tt.code), body["code"])
		})
	}
}

func Test_Dispatch_BodyLimit(t *testing.T) {
	srv := newServer(t, nil, server.WithMaxRequestSize(16))

	resp, body := post(t, srv.URL+"/api/skills/"+skills.ContractMarket, `{"method":"Delist","args":{}}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, string(envelope.CodeInvalidParams), body["code"])
}

func Test_StatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, server.StatusFor(envelope.Success(nil, "")))
	assert.Equal(t, http.StatusBadGateway, server.StatusFor(envelope.Failure(envelope.CodeUpstreamError, "x")))
	assert.Equal(t, http.StatusBadGateway, server.StatusFor(envelope.Failure(envelope.CodeTxTimeout, "x")))
	assert.Equal(t, http.StatusBadGateway, server.StatusFor(envelope.Failure(envelope.CodeUnauthorized, "x")))
}

func Test_CORS(t *testing.T) {
	srv := newServer(t, nil, server.WithAllowedOrigins("https://forest.example"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/skills/"+skills.ListItem, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://forest.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://forest.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
