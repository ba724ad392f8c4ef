package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftra123/remupro-v3/store/sqlite"
)

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List the stored months",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		months, err := store.ListMonths(context.Background())
		if err != nil {
			return fmt.Errorf("list months: %w", err)
		}
		if len(months) == 0 {
			fmt.Println("no stored months")
			return nil
		}
		for _, m := range months {
			snap, err := store.GetRun(context.Background(), m)
			if err != nil {
				return fmt.Errorf("load %s: %w", m, err)
			}
			fmt.Printf("%s  %4d teachers  total %s  saved %s\n",
				m, snap.Summary.Teachers, snap.Summary.TotalBRP,
				snap.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monthsCmd)
}
