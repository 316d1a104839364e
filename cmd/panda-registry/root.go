package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "panda-registry",
		Short: "Versioned block/field/attribute registry for PandA-style hardware",
		Long: `panda-registry holds the configuration model of a PandA-style FPGA
design: blocks of fields with typed values and attributes, change tracking
per client, and persistence of the configuration across restarts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Server configuration file (YAML)")

	root.AddCommand(newServeCmd(), newCheckCmd(), newLogCmd())
	return root
}
