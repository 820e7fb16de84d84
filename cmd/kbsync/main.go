// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kbsync CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taurbull/kbsync/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the kbsync CLI.
var rootCmd = &cobra.Command{
	Use:   "kbsync",
	Short: "Synchronize storefront content into an agent knowledge base",
	Long: `kbsync harvests content from external sources (storefront FAQ and legal
pages, Shopify orders) and synchronizes it into a conversational-agent
knowledge base, re-uploading only documents whose content actually changed.

Fingerprints of previously uploaded content are kept in a local state
directory; use sync for the regular run, prune to drop documents no source
produces anymore, and status to inspect the recorded state.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./kbsync.yaml or ~/.config/kbsync/config.yaml)")
	rootCmd.PersistentFlags().String("state-dir", "", "state directory for the fingerprint store (default \"state\")")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kbsync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kbsync"))
		}
	}

	viper.SetEnvPrefix("KBSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
