package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oxitortoise/internal/engine"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <model.json>",
		Short: "compile a model and run an entry point in the native embedder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, _ := cmd.Flags().GetString("entry")
			steps, _ := cmd.Flags().GetInt("steps")

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			model, err := engine.Compile(f)
			if err != nil {
				return err
			}
			eng, err := engine.New(model, engineOptions())
			if err != nil {
				return err
			}

			for i := 0; i < steps; i++ {
				if _, err := eng.RunStep(entry); err != nil {
					return err
				}
			}

			fmt.Printf("ran %s x%d: tick=%v turtles=%d\n",
				entry, steps, eng.World.Tick.Value(), eng.World.Turtles.Count())
			return nil
		},
	}
	cmd.Flags().String("entry", "go", "entry point to invoke")
	cmd.Flags().Int("steps", 1, "how many steps to run")
	return cmd
}
