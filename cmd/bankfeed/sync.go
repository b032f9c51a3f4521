package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finward/bankfeed/internal/auth"
	"github.com/finward/bankfeed/internal/cli"
	"github.com/finward/bankfeed/internal/common"
	"github.com/finward/bankfeed/internal/config"
	"github.com/finward/bankfeed/internal/ledger"
	"github.com/finward/bankfeed/internal/model"
	"github.com/finward/bankfeed/internal/pipeline"
	"github.com/finward/bankfeed/internal/session"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Normalize saved statement exports and upload them to the ledger",
		Long: `Runs the full pipeline for every configured account: read the saved raw
OFX export, normalize its transactions, and upload the batch to the ledger.

Each account is processed in isolation; one account failing does not stop
the others. The command reports a per-account outcome and exits non-zero if
any account failed.`,
		RunE: runSync,
	}

	cmd.Flags().String("export-dir", "", "directory of saved OFX exports (overrides config)")
	cmd.Flags().Int("concurrency", 0, "accounts to process in parallel (overrides config)")
	cmd.Flags().BoolP("dry-run", "d", false, "normalize without uploading")

	_ = viper.BindPFlag("export.dir", cmd.Flags().Lookup("export-dir"))
	_ = viper.BindPFlag("sync.concurrency", cmd.Flags().Lookup("concurrency"))

	return cmd
}

// dryRunUploader stands in for the ledger client when --dry-run is set.
type dryRunUploader struct{}

func (dryRunUploader) Upload(_ context.Context, batch []model.CanonicalTransaction) error {
	slog.Info("dry run: skipping upload", "transactions", len(batch))
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dryRun {
		// No credentials needed when nothing is uploaded.
		if cfg.ExportDir == "" || len(cfg.Accounts) == 0 {
			return common.NewUserError("sync needs export.dir and at least one account configured", common.ErrMissingConfig)
		}
	} else if err := cfg.ValidateSync(); err != nil {
		return err
	}

	var uploader pipeline.Uploader = dryRunUploader{}
	if !dryRun {
		tokens := auth.NewTokenCache(auth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.BaseURL + "oauth/token",
		})
		uploader = ledger.NewClient(cfg.BaseURL, tokens)
	}

	bar := progressbar.NewOptions(len(cfg.Accounts),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Syncing accounts..."),
	)

	pipelineCfg := pipeline.DefaultConfig()
	if cfg.Concurrency > 0 {
		pipelineCfg.Concurrency = cfg.Concurrency
	}

	p := pipeline.New(
		session.NewDirExporter(cfg.ExportDir),
		uploader,
		pipelineCfg,
		pipeline.WithOnResult(func(_ pipeline.Result) {
			_ = bar.Add(1)
		}),
	)

	results, runErr := p.Run(cmd.Context(), cfg.Accounts)
	_ = bar.Finish()
	fmt.Println()

	printSummary(results)

	if runErr != nil {
		return common.NewUserError("authentication failed, no uploads can succeed", runErr)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(results))
	}

	return nil
}

func printSummary(results []pipeline.Result) {
	fmt.Println(cli.TitleStyle.Render("Sync summary"))
	for _, r := range results {
		name := r.Account.DisplayName()
		if r.Err != nil {
			fmt.Printf("  %s %s %s\n",
				cli.ErrorStyle.Render("✗"),
				name,
				cli.SubtleStyle.Render(fmt.Sprintf("failed at %s: %v", r.Stage, r.Err)))
			continue
		}
		detail := fmt.Sprintf("%d uploaded", r.Uploaded)
		if r.Dropped > 0 {
			detail += fmt.Sprintf(", %d dropped", r.Dropped)
		}
		fmt.Printf("  %s %s %s\n",
			cli.SuccessStyle.Render("✓"),
			name,
			cli.SubtleStyle.Render(detail))
	}
}
