package forest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eforest-finance/forest-agent-kit/apiclient"
	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/ledger"
	"github.com/eforest-finance/forest-agent-kit/routing"
)

// ContractRequest is a resolved ledger call.
type ContractRequest struct {
	Network         *config.Network
	Args            map[string]any
	SkillName       string
	Method          string
	Chain           string
	ContractAddress string
	RPCURL          string
	Mode            routing.Mode
	// Timeout is the caller's advisory timeout, 0 when absent.
	Timeout time.Duration
}

// ContractInvoker performs ledger calls.
type ContractInvoker interface {
	InvokeContract(ctx context.Context, req ContractRequest) (any, error)
}

// ContractInvokerFunc adapts a function to ContractInvoker.
type ContractInvokerFunc func(ctx context.Context, req ContractRequest) (any, error)

// InvokeContract implements ContractInvoker.
func (f ContractInvokerFunc) InvokeContract(ctx context.Context, req ContractRequest) (any, error) {
	return f(ctx, req)
}

// APIRequest is a resolved backend API call.
type APIRequest struct {
	Network   *config.Network
	Params    map[string]any
	Route     routing.Route
	SkillName string
	Action    string
	Timeout   time.Duration
}

// APIInvoker performs backend API calls.
type APIInvoker interface {
	InvokeAPI(ctx context.Context, req APIRequest) (any, error)
}

// APIInvokerFunc adapts a function to APIInvoker.
type APIInvokerFunc func(ctx context.Context, req APIRequest) (any, error)

// InvokeAPI implements APIInvoker.
func (f APIInvokerFunc) InvokeAPI(ctx context.Context, req APIRequest) (any, error) {
	return f(ctx, req)
}

// LedgerInvoker sends view calls to the ledger viewer and send calls to the
// signer, waiting for the transaction to be mined. When Ledger lacks a signer
// or viewer and the call's network names a ledger gateway, the gateway fills
// the gap.
type LedgerInvoker struct {
	Ledger *ledger.Invoker
	Logger *slog.Logger
}

func (l *LedgerInvoker) ledgerFor(n *config.Network) *ledger.Invoker {
	if l.Ledger.Complete() || n == nil || n.LedgerURL == "" {
		return l.Ledger
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gw := ledger.NewGateway(n.LedgerURL,
		apiclient.WithToken(n.LedgerToken),
		apiclient.WithLogger(logger))
	return l.Ledger.Fallback(gw, gw)
}

// InvokeContract implements ContractInvoker.
func (l *LedgerInvoker) InvokeContract(ctx context.Context, req ContractRequest) (any, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	call := ledger.Call{
		Args:            req.Args,
		RPCURL:          req.RPCURL,
		ContractAddress: req.ContractAddress,
		Method:          req.Method,
	}
	inv := l.ledgerFor(req.Network)
	if req.Mode == routing.ModeView {
		return inv.View(ctx, call)
	}
	receipt, err := inv.Send(ctx, call)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ErrAPIURLNotConfigured is returned when the call's network has no API URL.
var ErrAPIURLNotConfigured = errors.New("backend API URL is not configured")

// HTTPAPIInvoker calls the backend REST API of the call's network. The
// bearer token is sent only for routes that require auth.
type HTTPAPIInvoker struct {
	logger *slog.Logger
	opts   []apiclient.Option
}

// NewHTTPAPIInvoker creates an HTTPAPIInvoker. opts apply to every client.
func NewHTTPAPIInvoker(logger *slog.Logger, opts ...apiclient.Option) *HTTPAPIInvoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAPIInvoker{logger: logger, opts: opts}
}

// InvokeAPI implements APIInvoker.
func (h *HTTPAPIInvoker) InvokeAPI(ctx context.Context, req APIRequest) (any, error) {
	if req.Network == nil || req.Network.APIURL == "" {
		return nil, fmt.Errorf("%w for %s", ErrAPIURLNotConfigured, req.SkillName)
	}

	opts := make([]apiclient.Option, 0, len(h.opts)+2)
	opts = append(opts, apiclient.WithLogger(h.logger), apiclient.WithToken(req.Network.APIToken))
	opts = append(opts, h.opts...)

	client := apiclient.New(req.Network.APIURL, opts...)
	return client.Do(ctx, apiclient.Request{
		Method:  req.Route.Method,
		Path:    req.Route.Path,
		Params:  req.Params,
		Auth:    req.Route.Auth,
		Timeout: req.Timeout,
	})
}
