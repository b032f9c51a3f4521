package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finward/bankfeed/internal/cli"
	"github.com/finward/bankfeed/internal/config"
	"github.com/finward/bankfeed/internal/normalize"
)

func accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if len(cfg.Accounts) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No accounts configured."))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render("Configured accounts"))
			for _, account := range cfg.Accounts {
				sortCode, number, err := normalize.SplitIdentifier(account.Identifier)
				if err != nil {
					fmt.Printf("  %s %s\n",
						account.DisplayName(),
						cli.ErrorStyle.Render(fmt.Sprintf("(invalid identifier: %v)", err)))
					continue
				}
				fmt.Printf("  %s %s\n",
					account.DisplayName(),
					cli.SubtleStyle.Render(fmt.Sprintf("%s %s", sortCode, number)))
			}
			return nil
		},
	}
}
