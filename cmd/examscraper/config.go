package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"examscraper/pkg/config"
	"examscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

// configShowCmd prints the effective configuration after all sources merge
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			ui.PrintError("Failed to load configuration", err.Error())
			os.Exit(1)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			ui.PrintError("Failed to render configuration", err.Error())
			os.Exit(1)
		}
		fmt.Print(string(data))
	},
}

// configInitCmd writes a default config file
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ".examscraper.yaml"
		if len(args) > 0 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil {
			ui.PrintError("Config file already exists", path)
			os.Exit(1)
		}

		if err := config.DefaultConfig().Save(path); err != nil {
			ui.PrintError("Failed to write config file", err.Error())
			os.Exit(1)
		}

		ui.PrintSuccess(fmt.Sprintf("Wrote %s", path))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
