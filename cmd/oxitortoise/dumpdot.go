package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oxitortoise/internal/engine"
	"oxitortoise/internal/mir"
)

func dumpDotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-dot <model.json>",
		Short: "print the post-lowering MIR of each procedure as DOT graphs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, _ := cmd.Flags().GetString("proc")

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			model, err := engine.Compile(f)
			if err != nil {
				return err
			}

			for id := range model.Program.Functions {
				fn := &model.Program.Functions[id]
				if proc != "" && fn.Name != proc {
					continue
				}
				fmt.Println(mir.DumpDOT(model.Program, mir.FunctionID(id)))
			}
			return nil
		},
	}
	cmd.Flags().String("proc", "", "dump only this procedure")
	return cmd
}
