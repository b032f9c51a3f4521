// Package ledger delivers canonical transactions to the downstream ledger
// API.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/finward/bankfeed/internal/model"
)

// uploadPath is the ledger API endpoint for bank transaction batches.
const uploadPath = "api/cc/bank-transactions/upload"

// maxErrorBody caps how much of a rejection body is retained for reporting.
const maxErrorBody = 64 * 1024

// TokenSource provides a bearer token for the Authorization header.
// *auth.TokenCache satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenInvalidator is implemented by token sources that can discard a
// cached credential the server no longer accepts. *auth.TokenCache
// satisfies it.
type TokenInvalidator interface {
	Invalidate()
}

// Client uploads one account's transaction batch per call. Batches are never
// merged across accounts: one account's failure must not discard another's.
type Client struct {
	tokens     TokenSource
	httpClient *http.Client
	uploadURL  string
}

// NewClient creates an upload client for the ledger API at baseURL, which
// must end with a trailing slash.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		uploadURL: baseURL + uploadPath,
		tokens:    tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload POSTs a single account's batch to the ledger. A non-nil error is
// exactly one of: an auth error from the token source, *SetupError (the
// request could not be built or never left the client), *NoResponseError
// (sent but no response came back), or *RejectedError (the server answered
// with a non-2xx status). A 401 rejection additionally discards the cached
// token so the next upload grants afresh instead of resending a credential
// the server no longer accepts. The batch itself is never modified.
func (c *Client) Upload(ctx context.Context, batch []model.CanonicalTransaction) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return &SetupError{Err: fmt.Errorf("failed to encode batch: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(body))
	if err != nil {
		return &SetupError{Err: fmt.Errorf("failed to create upload request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	slog.Debug("uploading batch", "url", c.uploadURL, "transactions", len(batch))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.tokens.(TokenInvalidator); ok {
				slog.Debug("discarding cached token rejected by the ledger")
				inv.Invalidate()
			}
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RejectedError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Header:     resp.Header.Clone(),
		}
	}

	return nil
}

// classifyTransportError separates requests that never left the client
// (unsupported scheme, proxy misconfiguration) from ones that went out and
// got no answer. Network-level failures and timeouts mean the request may
// have been sent, so they classify as no-response.
func classifyTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		var netErr net.Error
		if errors.As(uerr.Err, &netErr) ||
			errors.Is(uerr.Err, context.DeadlineExceeded) ||
			errors.Is(uerr.Err, context.Canceled) {
			return &NoResponseError{Err: err}
		}
		return &SetupError{Err: err}
	}
	return &NoResponseError{Err: err}
}
