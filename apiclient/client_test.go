package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eforest-finance/forest-agent-kit/apiclient"
	"github.com/eforest-finance/forest-agent-kit/errmap"
	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/netutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_Client_GetSendsQueryAndToken(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"code":"20000","data":{"items":[1,2]}}`))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL+"/api/", apiclient.WithToken("tok"), apiclient.WithLogger(quietLogger()))
	out, err := c.Do(context.Background(), apiclient.Request{
		Method: "get",
		Path:   "/app/nft/nftInfos",
		Params: map[string]any{"symbol": "TREE-1", "skip": 0, "ids": []any{"a", "b"}, "missing": nil},
		Auth:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/app/nft/nftInfos", got.URL.Path)
	assert.Equal(t, "TREE-1", got.URL.Query().Get("symbol"))
	assert.Equal(t, "0", got.URL.Query().Get("skip"))
	assert.Equal(t, []string{"a", "b"}, got.URL.Query()["ids"])
	assert.False(t, got.URL.Query().Has("missing"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Len(t, m["items"], 2)
}

func Test_Client_PostSendsJSONBodyWithoutAuth(t *testing.T) {
	var body map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL, apiclient.WithToken("tok"), apiclient.WithLogger(quietLogger()))
	out, err := c.Do(context.Background(), apiclient.Request{
		Method: http.MethodPost,
		Path:   "app/ai/generate",
		Params: map[string]any{"prompt": "tree"},
	})
	require.NoError(t, err)

	assert.Empty(t, auth)
	assert.Equal(t, map[string]any{"prompt": "tree"}, body)
	assert.Equal(t, map[string]any{"ok": true}, out)
}

func Test_Client_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		code    envelope.Code
	}{
		{name: "server message", status: 500, body: `{"message":"db down"}`, message: "db down", code: envelope.CodeUpstreamError},
		{name: "error string", status: 401, body: `{"error":"token expired"}`, message: "token expired", code: envelope.CodeUnauthorized},
		{name: "nested error", status: 400, body: `{"error":{"message":"bad symbol"}}`, message: "bad symbol", code: envelope.CodeUpstreamError},
		{name: "no body", status: 403, body: ``, message: "Request failed with status code 403", code: envelope.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := apiclient.New(srv.URL, apiclient.WithLogger(quietLogger()))
			_, err := c.Do(context.Background(), apiclient.Request{Path: "/x"})

			var se *apiclient.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.HTTPStatus())
			assert.Equal(t, tt.message, se.ResponseMessage())

			m := errmap.Map(err)
			assert.Equal(t, tt.code, m.Code)
			assert.Equal(t, tt.message, m.Message)
		})
	}
}

func Test_Client_RetriesGatewayErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL, apiclient.WithLogger(quietLogger()))
	out, err := c.Do(context.Background(), apiclient.Request{Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func Test_Client_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := apiclient.New(url, apiclient.WithRetries(-1), apiclient.WithLogger(quietLogger()))
	_, err := c.Do(context.Background(), apiclient.Request{Path: "/x"})

	var se *apiclient.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.HTTPStatus())
	assert.NotNil(t, se.Unwrap())
	assert.Equal(t, envelope.CodeUpstreamError, errmap.Map(err).Code)
}

func Test_Client_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL, apiclient.WithRetries(-1), apiclient.WithLogger(quietLogger()))
	_, err := c.Do(context.Background(), apiclient.Request{Path: "/slow", Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_Client_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c := apiclient.New(srv.URL, apiclient.WithMaxBodySize(16), apiclient.WithLogger(quietLogger()))
	_, err := c.Do(context.Background(), apiclient.Request{Path: "/big"})
	assert.True(t, netutil.IsSizeLimitExceededError(err))
}

func Test_Client_AbsolutePathIgnoresBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"` + r.URL.Path + `"`))
	}))
	defer srv.Close()

	c := apiclient.New("http://unused.invalid", apiclient.WithLogger(quietLogger()))
	out, err := c.Do(context.Background(), apiclient.Request{Path: srv.URL + "/abs"})
	require.NoError(t, err)
	assert.Equal(t, "/abs", out)
}

func Test_Unwrap(t *testing.T) {
	assert.Equal(t, "x", apiclient.Unwrap(map[string]any{"data": "x"}))
	body := map[string]any{"data": nil, "ok": true}
	assert.Equal(t, body, apiclient.Unwrap(body))
	assert.Equal(t, []any{1}, apiclient.Unwrap([]any{1}))
	assert.Nil(t, apiclient.Unwrap(nil))
}

func Test_EncodeQuery(t *testing.T) {
	q := apiclient.EncodeQuery(map[string]any{
		"b":      true,
		"n":      json.Number("12"),
		"f":      1.5,
		"filter": map[string]any{"a": 1},
		"tags":   []string{"x", "y"},
	})
	assert.Equal(t, "b=true&f=1.5&filter=%7B%22a%22%3A1%7D&n=12&tags=x&tags=y", q)
	assert.Empty(t, apiclient.EncodeQuery(nil))
}
