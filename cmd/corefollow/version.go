package main

import (
	"fmt"

	"github.com/aretw0/corefollow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Corefollow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Corefollow v%s\n", corefollow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
