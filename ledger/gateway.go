package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/eforest-finance/forest-agent-kit/apiclient"
)

// Gateway paths, relative to the gateway URL.
const (
	GatewaySendPath = "/send"
	GatewayViewPath = "/view"
)

var (
	_ Signer = (*Gateway)(nil)
	_ Viewer = (*Gateway)(nil)
)

// Gateway is a Signer and Viewer backed by a remote wallet service. It posts
//
//	{"rpcUrl", "contractAddress", "method", "args"}
//
// to <url>/send, expecting {"transactionId": "..."}, and to <url>/view,
// expecting the decoded view result. Both may be wrapped in {"data": ...}.
// The service owns the keys and the protobuf encoding of the transaction.
type Gateway struct {
	client *apiclient.Client
}

// NewGateway creates a Gateway for the service at url.
func NewGateway(url string, opts ...apiclient.Option) *Gateway {
	return &Gateway{client: apiclient.New(url, opts...)}
}

// SendTransaction implements Signer.
func (g *Gateway) SendTransaction(ctx context.Context, call Call) (string, error) {
	out, err := g.client.Do(ctx, g.request(GatewaySendPath, call))
	if err != nil {
		return "", err
	}
	switch v := out.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case map[string]any:
		for _, key := range []string{"transactionId", "TransactionId"} {
			if id, ok := v[key].(string); ok && id != "" {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("ledger: gateway returned no transaction id for %s", call.Method)
}

// View implements Viewer.
func (g *Gateway) View(ctx context.Context, call Call) (any, error) {
	return g.client.Do(ctx, g.request(GatewayViewPath, call))
}

func (g *Gateway) request(path string, call Call) apiclient.Request {
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	return apiclient.Request{
		Method: "POST",
		Path:   path,
		Auth:   true,
		Params: map[string]any{
			"rpcUrl":          call.RPCURL,
			"contractAddress": call.ContractAddress,
			"method":          call.Method,
			"args":            args,
		},
	}
}
