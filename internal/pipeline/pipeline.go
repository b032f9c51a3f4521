// Package pipeline orchestrates the per-account flow: fetch the raw export,
// normalize it, upload the batch to the ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/finward/bankfeed/internal/auth"
	"github.com/finward/bankfeed/internal/common"
	"github.com/finward/bankfeed/internal/model"
	"github.com/finward/bankfeed/internal/normalize"
	"github.com/finward/bankfeed/internal/ofx"
	"github.com/finward/bankfeed/internal/session"
)

// Stage identifies where in the per-account flow an account currently is,
// or where it failed.
type Stage string

// Pipeline stages, in order.
const (
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageNormalize Stage = "normalize"
	StageUpload    Stage = "upload"
)

// Result is one account's outcome. Err is nil on success; otherwise Stage
// names the stage that failed. The pipeline's overall result is the full set
// of Results, never a single pass/fail.
type Result struct {
	Err      error
	Account  model.Account
	Stage    Stage
	Uploaded int
	Dropped  int
}

// Uploader delivers one account's batch. *ledger.Client satisfies it.
type Uploader interface {
	Upload(ctx context.Context, batch []model.CanonicalTransaction) error
}

// Config holds pipeline tuning options.
type Config struct {
	// Concurrency caps how many accounts are processed at once.
	Concurrency int
	// FetchAttempts bounds retries of the export fetch.
	FetchAttempts int
}

// DefaultConfig returns the default pipeline configuration: accounts
// processed one at a time, fetch retried once.
func DefaultConfig() Config {
	return Config{
		Concurrency:   1,
		FetchAttempts: 2,
	}
}

// Pipeline runs the fetch → normalize → upload flow for a set of accounts
// with per-account failure isolation.
type Pipeline struct {
	exporter   session.Exporter
	parser     *ofx.Parser
	normalizer *normalize.Normalizer
	uploader   Uploader
	onResult   func(Result)
	config     Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOnResult registers a callback invoked as each account settles. It may
// be called from multiple goroutines, but never concurrently with itself.
func WithOnResult(fn func(Result)) Option {
	return func(p *Pipeline) { p.onResult = fn }
}

// New creates a pipeline from its collaborators.
func New(exporter session.Exporter, uploader Uploader, config Config, opts ...Option) *Pipeline {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	p := &Pipeline{
		exporter:   exporter,
		parser:     ofx.NewParser(),
		normalizer: normalize.NewNormalizer(),
		uploader:   uploader,
		config:     config,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every account and returns one Result per account, in the
// input order. It returns only after every account's upload attempt has
// settled — success or classified failure — so the caller may safely release
// the banking session once Run comes back.
//
// Failures are isolated per account, with one exception: an authentication
// failure means no upload can succeed, so it stops accounts that have not
// started yet. The returned error is non-nil only for that run-fatal case.
func (p *Pipeline) Run(ctx context.Context, accounts []model.Account) ([]Result, error) {
	results := make([]Result, len(accounts))

	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	var emit func(Result)
	if p.onResult != nil {
		resultCh := make(chan Result)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for r := range resultCh {
				p.onResult(r)
			}
		}()
		defer func() {
			close(resultCh)
			<-done
		}()
		emit = func(r Result) { resultCh <- r }
	}

	for i, account := range accounts {
		g.Go(func() error {
			res := p.processAccount(runCtx, account)
			results[i] = res
			if emit != nil {
				emit(res)
			}
			if errors.Is(res.Err, auth.ErrAuthFailed) {
				// Cancels runCtx so accounts not yet started
				// fail fast instead of burning grant requests.
				return res.Err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

func (p *Pipeline) processAccount(ctx context.Context, account model.Account) Result {
	res := Result{Account: account}

	if err := ctx.Err(); err != nil {
		res.Stage = StageFetch
		res.Err = fmt.Errorf("run aborted before processing: %w", err)
		return res
	}

	var raw string
	res.Stage = StageFetch
	err := common.WithRetry(ctx, func() error {
		var fetchErr error
		raw, fetchErr = p.exporter.Export(ctx, account)
		return fetchErr
	}, common.RetryOptions{MaxAttempts: p.config.FetchAttempts})
	if err != nil {
		res.Err = err
		slog.Error("export fetch failed",
			"account", account.DisplayName(),
			"stage", res.Stage,
			"error", err)
		return res
	}

	res.Stage = StageParse
	statements, err := p.parser.Parse(raw)
	if err != nil {
		res.Err = err
		slog.Error("export parse failed",
			"account", account.DisplayName(),
			"stage", res.Stage,
			"error", err)
		return res
	}

	stmt, err := statementFor(statements, account)
	if err != nil {
		res.Err = err
		slog.Error("statement not found in export",
			"account", account.DisplayName(),
			"stage", res.Stage,
			"error", err)
		return res
	}

	res.Stage = StageNormalize
	batch, err := p.normalizer.Normalize(account.Identifier, stmt.Lines)
	if err != nil {
		res.Err = err
		slog.Error("normalization failed",
			"account", account.DisplayName(),
			"stage", res.Stage,
			"error", err)
		return res
	}
	res.Dropped = len(stmt.Lines) - len(batch)

	if len(batch) == 0 {
		slog.Info("no cleared transactions to upload",
			"account", account.DisplayName(),
			"raw_lines", len(stmt.Lines))
		res.Stage = StageUpload
		return res
	}

	res.Stage = StageUpload
	// The upload runs on a cancel-detached context: once a batch is in
	// flight it is allowed to settle even if the run is aborted, because a
	// half-delivered batch cannot be told apart from a delivered one.
	if err := p.uploader.Upload(context.WithoutCancel(ctx), batch); err != nil {
		res.Err = err
		slog.Error("upload failed",
			"account", account.DisplayName(),
			"stage", res.Stage,
			"transactions", len(batch),
			"error", err)
		return res
	}

	res.Uploaded = len(batch)
	slog.Info("account uploaded",
		"account", account.DisplayName(),
		"transactions", res.Uploaded,
		"dropped", res.Dropped)
	return res
}

// statementFor picks the statement matching the account identifier. A
// single-statement export is accepted as-is since the bank emits one
// statement per session fetch.
func statementFor(statements []model.Statement, account model.Account) (model.Statement, error) {
	for _, stmt := range statements {
		if stmt.AccountID == account.Identifier {
			return stmt, nil
		}
	}
	if len(statements) == 1 {
		return statements[0], nil
	}
	return model.Statement{}, fmt.Errorf("export contains no statement for account %s", account.DisplayName())
}
