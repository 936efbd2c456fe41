package main

import (
	"fmt"

	"github.com/aretw0/corefollow"
	"github.com/aretw0/corefollow/internal/cli"
	"github.com/aretw0/corefollow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios [name...]",
	Short: "List the power scenarios available to the case",
	Long: `Lists the scenario names of the case library. With names, or with --describe,
each scenario is printed as a segment table with its description.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCase(cmd)
		if err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			cfg.ScenarioDir = dir
		}
		lib, err := corefollow.OpenLibrary(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		names := args
		describe, _ := cmd.Flags().GetBool("describe")
		if len(names) == 0 {
			if names, err = lib.List(ctx); err != nil {
				return err
			}
		} else {
			describe = true
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()
		if !describe {
			if asJSON {
				return cli.WriteJSON(out, names)
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		width, _ := cmd.Flags().GetInt("width")
		render, err := tui.NewRenderer(width)
		if err != nil {
			return err
		}
		for _, name := range names {
			s, err := lib.Scenario(ctx, name)
			if err != nil {
				return err
			}
			if asJSON {
				if err := cli.WriteJSON(out, s); err != nil {
					return err
				}
				continue
			}
			text, err := render(tui.ScenarioMarkdown(s))
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
	scenariosCmd.Flags().String("dir", "", "Scenario directory, overriding the case")
	scenariosCmd.Flags().BoolP("describe", "d", false, "Print every scenario in full")
	scenariosCmd.Flags().Int("width", 100, "Word wrap width of descriptions")
}
