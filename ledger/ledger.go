// Package ledger sends and reads aelf contract calls through injected
// signing and view backends and waits for transactions to be mined.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

var (
	// ErrSignerNotConfigured is returned for sends without a Signer.
	ErrSignerNotConfigured = errors.New("ledger: no signer configured; a wallet signer is required to send transactions")

	// ErrViewerNotConfigured is returned for reads without a Viewer.
	ErrViewerNotConfigured = errors.New("ledger: no viewer configured; a contract view backend is required for read calls")
)

// Call addresses one contract method on one node.
type Call struct {
	Args            map[string]any
	RPCURL          string
	ContractAddress string
	Method          string
}

// Signer signs and broadcasts a contract call, returning the transaction id.
// Key handling and transaction encoding live behind this interface.
type Signer interface {
	SendTransaction(ctx context.Context, call Call) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, call Call) (string, error)

// SendTransaction implements Signer.
func (f SignerFunc) SendTransaction(ctx context.Context, call Call) (string, error) {
	return f(ctx, call)
}

// Viewer executes a read-only contract call.
type Viewer interface {
	View(ctx context.Context, call Call) (any, error)
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(ctx context.Context, call Call) (any, error)

// View implements Viewer.
func (f ViewerFunc) View(ctx context.Context, call Call) (any, error) {
	return f(ctx, call)
}

// Receipt is a mined transaction.
type Receipt struct {
	TxResult      map[string]any `json:"txResult"`
	TransactionID string         `json:"TransactionId"`
}

// Invoker performs sends and views.
type Invoker struct {
	signer Signer
	viewer Viewer
	poller *Poller
	logger *slog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithSigner sets the transaction signer.
func WithSigner(s Signer) Option {
	return func(i *Invoker) { i.signer = s }
}

// WithViewer sets the read backend.
func WithViewer(v Viewer) Option {
	return func(i *Invoker) { i.viewer = v }
}

// WithPoller replaces the default transaction result poller.
func WithPoller(p *Poller) Option {
	return func(i *Invoker) {
		if p != nil {
			i.poller = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an Invoker.
func New(opts ...Option) *Invoker {
	i := &Invoker{logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	if i.poller == nil {
		i.poller = NewPoller(PollerLogger(i.logger))
	}
	return i
}

// Fallback returns a copy of i that uses s and v where i has no signer or
// viewer of its own. The poller is shared.
func (i *Invoker) Fallback(s Signer, v Viewer) *Invoker {
	out := *i
	if out.signer == nil {
		out.signer = s
	}
	if out.viewer == nil {
		out.viewer = v
	}
	return &out
}

// Complete reports whether i has both a signer and a viewer.
func (i *Invoker) Complete() bool {
	return i.signer != nil && i.viewer != nil
}

// Send signs and broadcasts call, then waits for it to be mined.
func (i *Invoker) Send(ctx context.Context, call Call) (*Receipt, error) {
	if i.signer == nil {
		return nil, ErrSignerNotConfigured
	}
	txID, err := i.signer.SendTransaction(ctx, call)
	if err != nil {
		return nil, err
	}
	if txID == "" {
		return nil, fmt.Errorf("ledger: signer returned no transaction id for %s", call.Method)
	}
	i.logger.Debug("transaction sent",
		slog.String("method", call.Method),
		slog.String("contract", call.ContractAddress),
		slog.String("transaction_id", txID))

	res, err := i.poller.Wait(ctx, call.RPCURL, txID)
	if err != nil {
		return nil, err
	}
	return &Receipt{TransactionID: txID, TxResult: res}, nil
}

// View performs a read-only call.
func (i *Invoker) View(ctx context.Context, call Call) (any, error) {
	if i.viewer == nil {
		return nil, ErrViewerNotConfigured
	}
	return i.viewer.View(ctx, call)
}

// Defaults for transaction polling.
const (
	DefaultPollInterval = time.Second
	DefaultPollRetries  = 10
)

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// PollInterval sets the wait between polls.
func PollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// PollRetries sets how often a pending transaction is polled again.
func PollRetries(n int) PollerOption {
	return func(p *Poller) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// PollHTTPClient sets the client used to query nodes.
func PollHTTPClient(hc *http.Client) PollerOption {
	return func(p *Poller) { p.httpClient = hc }
}

// PollerLogger sets the logger.
func PollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}
