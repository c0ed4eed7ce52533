package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"oxitortoise/internal/engine"
	"oxitortoise/internal/install"
)

func compileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <model.json>",
		Short: "compile a model AST to a WebAssembly module artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = appCfg.Installer.ArtifactDir
			}
			if out == "" {
				out = "artifacts"
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			model, err := engine.Compile(f)
			if err != nil {
				return err
			}

			host, err := install.NewDiskHost(out)
			if err != nil {
				return err
			}
			install.Teardown()
			if err := install.Init(host); err != nil {
				return err
			}
			if appCfg.Installer.TableBatch > 0 {
				install.SetTableBatch(appCfg.Installer.TableBatch)
			}
			entries, err := install.Install(model.Wasm)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(entries))
			for n := range entries {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Printf("%-24s slot %d\n", n, entries[n].Slot)
			}
			logrus.WithFields(logrus.Fields{
				"artifact": host.Artifacts()[0],
				"bytes":    len(model.Wasm.Bytes),
				"entries":  len(entries),
			}).Info("model compiled")
			return nil
		},
	}
	cmd.Flags().String("out", "", "artifact directory (defaults to installer.artifact_dir)")
	return cmd
}
