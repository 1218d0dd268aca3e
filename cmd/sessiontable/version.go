package main

import (
	"fmt"

	"github.com/aretw0/sessiontable"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sessiontable",
		// Skips config resolution so version works with a broken config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sessiontable version %s\n", sessiontable.Version)
		},
	}
}
