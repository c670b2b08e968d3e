package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eforest-finance/forest-agent-kit/apiclient"
)

// TxError is a transaction that did not reach the mined state.
type TxError struct {
	// Detail is the node's Error field for failed transactions.
	Detail        any
	TransactionID string
	Status        string
	// Timeout is set when polling gave up on a pending transaction.
	Timeout bool
}

func (e *TxError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("Transaction polling timeout. TransactionId: %s", e.TransactionID)
	}
	detail := e.Detail
	if detail == nil {
		detail = ""
	}
	b, err := json.Marshal(detail)
	if err != nil {
		b = []byte(`""`)
	}
	return fmt.Sprintf("Transaction failed with status %q. TransactionId: %s. Error: %s", e.Status, e.TransactionID, b)
}

// Poller waits for transaction results through the node REST API.
type Poller struct {
	httpClient *http.Client
	logger     *slog.Logger
	interval   time.Duration
	maxRetries int
}

// NewPoller creates a Poller polling every second, ten times at most.
func NewPoller(opts ...PollerOption) *Poller {
	p := &Poller{
		logger:     slog.Default(),
		interval:   DefaultPollInterval,
		maxRetries: DefaultPollRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls GET <rpc>/api/blockChain/transactionResult until txID is mined.
// PENDING and NOTEXISTED are polled again; any other status is a *TxError.
func (p *Poller) Wait(ctx context.Context, rpcURL, txID string) (map[string]any, error) {
	client := apiclient.New(rpcURL,
		apiclient.WithHTTPClient(p.httpClient),
		apiclient.WithLogger(p.logger))

	for attempt := 0; ; attempt++ {
		res, err := p.fetch(ctx, client, txID)
		if err != nil {
			return nil, err
		}

		status, _ := res["Status"].(string)
		switch strings.ToLower(status) {
		case "mined":
			return res, nil
		case "pending", "notexisted":
			if attempt >= p.maxRetries {
				return nil, &TxError{TransactionID: txID, Status: status, Timeout: true}
			}
			p.logger.Debug("transaction not mined yet",
				slog.String("transaction_id", txID),
				slog.String("status", status),
				slog.Int("attempt", attempt+1))
		default:
			return nil, &TxError{TransactionID: txID, Status: status, Detail: res["Error"]}
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) fetch(ctx context.Context, client *apiclient.Client, txID string) (map[string]any, error) {
	body, err := client.DoRaw(ctx, apiclient.Request{
		Path:   "/api/blockChain/transactionResult",
		Params: map[string]any{"transactionId": txID},
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction result %s: %w", txID, err)
	}
	res, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ledger: unexpected transaction result for %s", txID)
	}
	return res, nil
}
