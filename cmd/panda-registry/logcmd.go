package main

import (
	"github.com/spf13/cobra"

	"github.com/pandablocks/panda-registry/cmd/panda-registry/commands"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect registry event logs",
	}
	cmd.AddCommand(newLogViewCmd(), newLogStatsCmd())
	return cmd
}

func newLogViewCmd() *cobra.Command {
	var (
		filter   commands.ViewFilter
		category string
	)
	cmd := &cobra.Command{
		Use:   "view <file.rlog>",
		Short: "View an event log in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" {
				c, err := commands.ParseCategoryFlag(category)
				if err != nil {
					return err
				}
				filter.Category = &c
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Filter by category (put, report, config, state)")
	cmd.Flags().StringVar(&filter.ContextID, "context", "", "Filter by change-set context ID")
	cmd.Flags().StringVar(&filter.EntityPrefix, "entity", "", "Filter by entity name prefix, e.g. PULSE1.")
	cmd.Flags().BoolVar(&filter.ErrorsOnly, "errors", false, "Show only failed puts and configuration errors")
	return cmd
}

func newLogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.rlog>",
		Short: "Show statistics about an event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
