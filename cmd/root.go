package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand returns the node command. Flags may also be set through ZENITH_*
// environment variables or a config file.
func NewRootCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:           "zenith-node",
		Short:         "Run a zenith chain node",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := LoadConfig(viper.New(), cmd.Flags(), configFile)
			if err != nil {
				return err
			}

			log, err := NewLogger(config.LogLevel)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			node, err := NewNode(log, config, registry)
			if err != nil {
				return fmt.Errorf("could not build node: %w", err)
			}
			return node.Run(context.Background())
		},
	}

	command.Flags().StringVar(&configFile, "config", "", "path to a configuration file (yaml, toml or json)")
	BindFlags(command.Flags())
	return command
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
