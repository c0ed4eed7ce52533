package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	pkgconfig "oxitortoise/pkg/config"
	"oxitortoise/pkg/utils"

	"oxitortoise/internal/engine"
	"oxitortoise/internal/world"
)

var appCfg *pkgconfig.Config

func main() {
	rootCmd := &cobra.Command{
		Use:               "oxitortoise",
		Short:             "compile NetLogo model ASTs to WebAssembly and run them",
		PersistentPreRunE: initApp,
	}
	rootCmd.PersistentFlags().String("env", "", "configuration environment to merge over default.yaml")

	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(dumpDotCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp loads configuration and wires logging. A missing config file
// is not fatal for a CLI invoked outside a checkout; defaults apply.
func initApp(cmd *cobra.Command, _ []string) error {
	env, _ := cmd.Flags().GetString("env")

	var err error
	if env != "" {
		appCfg, err = pkgconfig.Load(env)
	} else {
		appCfg, err = pkgconfig.LoadFromEnv()
	}
	if err != nil {
		logrus.WithError(err).Warn("configuration not loaded; using built-in defaults")
		appCfg = &pkgconfig.Config{}
	}

	if appCfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(appCfg.Logging.Level); err == nil && appCfg.Logging.Level != "" {
		logrus.SetLevel(lvl)
	}
	if appCfg.Logging.File != "" {
		f, err := os.OpenFile(appCfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		logrus.SetOutput(f)
	}
	return nil
}

// engineOptions translates the loaded configuration into world-sizing
// options, leaving the engine's defaults in place when the config is
// silent. OXI_SEED overrides the configured seed so a shell can pin a
// reproducible run without editing config files.
func engineOptions() engine.Options {
	opts := engine.Options{Seed: utils.EnvInt64Or("SEED", appCfg.World.Seed)}
	if appCfg.World.Width != 0 && appCfg.World.Height != 0 {
		opts.Topology = world.Topology{
			MinX:  appCfg.World.MinX,
			MinY:  appCfg.World.MinY,
			Width: appCfg.World.Width, Height: appCfg.World.Height,
			WrapX: appCfg.World.WrapX, WrapY: appCfg.World.WrapY,
		}
	}
	return opts
}
