package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".isetdb"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for isetdb settings.
const envPrefix = "ISETDB"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load reads configuration from file, env vars, and defaults. If configPath
// is non-empty, it is used as the explicit config file path; otherwise the
// config file is searched in CWD and $HOME. A missing config file is not an
// error; defaults apply.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("store.hibernation_threshold", DefaultHibernationThreshold)

	viperCfg.SetDefault("observability.enabled", false)
	viperCfg.SetDefault("observability.endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("observability.service", DefaultServiceName)
	viperCfg.SetDefault("observability.env", "")
	viperCfg.SetDefault("observability.metrics_addr", "")
}
