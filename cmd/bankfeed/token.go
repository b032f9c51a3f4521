package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finward/bankfeed/internal/auth"
	"github.com/finward/bankfeed/internal/cli"
	"github.com/finward/bankfeed/internal/config"
)

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Verify the ledger credentials by requesting an access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			tokens := auth.NewTokenCache(auth.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.BaseURL + "oauth/token",
			})

			if _, err := tokens.Token(cmd.Context()); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render("✓") + " token grant succeeded")
			return nil
		},
	}
}
