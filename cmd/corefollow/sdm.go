package main

import (
	"context"

	"github.com/aretw0/corefollow/internal/cli"
	"github.com/spf13/cobra"
)

var sdmCmd = &cobra.Command{
	Use:   "sdm",
	Short: "Analyze the shutdown margin of the case state",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		core, err := openCore(sc, cmd)
		if err != nil {
			return err
		}
		defer core.Close()

		res, err := core.SDM(sc)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return cli.WriteJSON(cmd.OutOrStdout(), res)
		}
		cli.PrintSDM(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sdmCmd)
}
