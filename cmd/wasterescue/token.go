package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wasterescue/internal/auth"
	"wasterescue/internal/config"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token <reviewer>",
	Short: "Issue a reviewer token for the review API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		signed, expiresAt, err := auth.NewTokens(cfg.JWT).Issue(args[0], tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		cmd.PrintErrf("expires %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "reviewer email carried in the token")
	rootCmd.AddCommand(tokenCmd)
}
