package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/corefollow/internal/cli"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the case operation and print one row per step",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		core, err := openCore(sc, cmd)
		if err != nil {
			return err
		}
		defer core.Close()

		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()
		printer := cli.NewStepPrinter(out, core.Engine().Rods().Banks())

		_, err = core.Run(sc, func(r *domain.Result) {
			if asJSON {
				_ = cli.WriteJSON(out, r)
				return
			}
			printer.Print(r)
		})
		if sig := sc.Signal(); sig != nil && errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted by %v", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
