package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/isetdb/internal/config"
)

// NewConfigCommand creates the effective-config dump command.
func NewConfigCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after merging defaults, the config file
and ISETDB_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			return dumpConfig(cobraCmd, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: .isetdb.yaml in cwd or $HOME)")

	return cmd
}

// effectiveConfig mirrors config.Config with YAML tags matching the config
// file layout, so the dump round-trips as a valid config file.
type effectiveConfig struct {
	Store struct {
		HibernationThreshold int `yaml:"hibernation_threshold"`
	} `yaml:"store"`
	Observability struct {
		Enabled     bool   `yaml:"enabled"`
		Endpoint    string `yaml:"endpoint"`
		Service     string `yaml:"service"`
		Env         string `yaml:"env,omitempty"`
		MetricsAddr string `yaml:"metrics_addr,omitempty"`
	} `yaml:"observability"`
}

// dumpConfig writes the effective config as YAML.
func dumpConfig(cmd *cobra.Command, cfg *config.Config) error {
	var eff effectiveConfig

	eff.Store.HibernationThreshold = cfg.Store.HibernationThreshold
	eff.Observability.Enabled = cfg.Observability.Enabled
	eff.Observability.Endpoint = cfg.Observability.Endpoint
	eff.Observability.Service = cfg.Observability.Service
	eff.Observability.Env = cfg.Observability.Env
	eff.Observability.MetricsAddr = cfg.Observability.MetricsAddr

	data, err := yaml.Marshal(eff)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)

	return err
}
