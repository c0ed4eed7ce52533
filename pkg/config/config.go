package config

// Package config provides a reusable loader for oxitortoise
// configuration files and environment variables. It is versioned so
// that applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"oxitortoise/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for an oxitortoise
// instance. It mirrors the structure of the YAML files under
// cmd/config.
type Config struct {
	World struct {
		MinX   int   `mapstructure:"min_x" json:"min_x"`
		MinY   int   `mapstructure:"min_y" json:"min_y"`
		Width  int   `mapstructure:"width" json:"width"`
		Height int   `mapstructure:"height" json:"height"`
		WrapX  bool  `mapstructure:"wrap_x" json:"wrap_x"`
		WrapY  bool  `mapstructure:"wrap_y" json:"wrap_y"`
		Seed   int64 `mapstructure:"seed" json:"seed"`
	} `mapstructure:"world" json:"world"`

	Installer struct {
		ArtifactDir string `mapstructure:"artifact_dir" json:"artifact_dir"`
		TableBatch  int    `mapstructure:"table_batch" json:"table_batch"`
	} `mapstructure:"installer" json:"installer"`

	Server struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"server" json:"server"`

	Logging struct {
		Level  string `mapstructure:"level" json:"level"`
		Format string `mapstructure:"format" json:"format"`
		File   string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrapf(err, "merge %s config", env)
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the OXI_ENV environment
// variable, after sourcing a .env file into the process environment if
// one is present in the working directory.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()
	return Load(utils.EnvOr("ENV", ""))
}
