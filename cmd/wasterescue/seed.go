package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file...]",
	Short: "Create sample documents in the local failed-files folder",
	Long: `Creates placeholder documents in the filesystem store's source folder so a
batch has something to pick up. Without arguments a fixed sample set is used.
Existing files are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if a.LocalStore == nil {
			return errors.New("seed requires the filesystem store backend")
		}
		created, err := a.LocalStore.Seed(args)
		if err != nil {
			return err
		}
		for _, name := range created {
			cmd.Printf("created %s\n", name)
		}
		cmd.Printf("%d document(s) seeded in %s\n", len(created), a.LocalStore.SourceDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
