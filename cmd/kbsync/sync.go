// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/taurbull/kbsync/internal/elevenlabs"
	"github.com/taurbull/kbsync/internal/shopify"
	"github.com/taurbull/kbsync/internal/source"
	"github.com/taurbull/kbsync/internal/state"
	"github.com/taurbull/kbsync/internal/syncer"
	"github.com/taurbull/kbsync/pkg/types"
)

const defaultUserAgent = "kbsync/" // version appended at build

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Harvest all sources and push changed documents to the knowledge base",
	Long: `Sync fetches documents from every configured source, fingerprints their
content, and uploads only documents that are new or whose content changed
since the last run. Unchanged documents make no remote calls.

A single document failing does not stop the run; failed documents are
retried on the next run. The command exits non-zero when any document
failed.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("force", false, "re-upload every document regardless of hash match")
	syncCmd.Flags().StringSlice("agent", nil, "agent id to assign synced documents to (repeatable)")
	syncCmd.Flags().Duration("interval", 0, "re-run every interval (0 runs once and exits)")
	syncCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return runOnce(cmd.Context(), cfg)
	}

	// Periodic mode: a failed run is reported and the loop keeps going.
	for {
		if err := runOnce(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "sync run failed: %v\n", err)
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(interval):
		}
	}
}

func runOnce(ctx context.Context, cfg types.PipelineConfig) error {
	lock, err := state.AcquireLock(stateDir(cfg))
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := state.NewStore(cfg.Sync)
	if err != nil {
		return err
	}
	defer store.Close()

	kb := elevenlabs.NewClient(cfg.KnowledgeBase, nil)

	docs := source.Collect(ctx, buildSources(cfg), os.Stderr)
	if len(docs) == 0 {
		fmt.Println("No documents collected; nothing to sync.")
		return nil
	}

	engine := syncer.NewEngine(store, kb, cfg.Sync)
	summary, err := engine.Sync(ctx, docs, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d document(s) failed to sync", summary.Failed, summary.Total())
	}
	return nil
}

// buildSources lists the content sources the configuration enables. The
// page source always runs; products need a catalog URL and orders a
// Shopify access token.
func buildSources(cfg types.PipelineConfig) []source.Source {
	sources := []source.Source{
		source.NewPageSource(&http.Client{Timeout: cfg.Scrape.Timeout}, cfg.Scrape),
	}
	if cfg.Product.CatalogURL != "" {
		sources = append(sources, source.NewProductSource(&http.Client{Timeout: cfg.Product.Timeout}, cfg.Product))
	}
	if cfg.Shopify.AccessToken != "" {
		sources = append(sources, shopify.NewOrderSource(shopify.NewClient(cfg.Shopify, nil)))
	}
	return sources
}

// pipelineConfig assembles the run configuration from the config file,
// environment, secrets, and command flags. Flags win over the config
// file; secrets win over api keys placed in the config file.
func pipelineConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpCfg := types.HTTPConfig{
		Timeout:   timeout,
		UserAgent: defaultUserAgent + version,
	}

	var pages []types.PageConfig
	if err := viper.UnmarshalKey("scrape.pages", &pages); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("parsing scrape.pages: %w", err)
	}

	force, _ := cmd.Flags().GetBool("force")
	agents, _ := cmd.Flags().GetStringSlice("agent")
	if len(agents) == 0 {
		agents = viper.GetStringSlice("sync.agent_ids")
	}

	sd, _ := cmd.Flags().GetString("state-dir")
	if sd == "" {
		sd = viper.GetString("sync.state_dir")
	}

	apiVersion := viper.GetString("shopify.api_version")
	if apiVersion == "" {
		apiVersion = "2024-01"
	}

	cfg := types.PipelineConfig{
		Scrape: types.ScrapeConfig{
			HTTPConfig: httpCfg,
			Pages:      pages,
		},
		Product: types.ProductConfig{
			HTTPConfig: httpCfg,
			CatalogURL: viper.GetString("product.catalog_url"),
			MaxPages:   viper.GetInt("product.max_pages"),
		},
		Shopify: types.ShopifyConfig{
			HTTPConfig:  httpCfg,
			ShopName:    viper.GetString("shopify.shop_name"),
			APIVersion:  apiVersion,
			AccessToken: loadedSecrets.Get("shopify-access-token", viper.GetString("shopify.access_token")),
			OrderLimit:  viper.GetInt("shopify.order_limit"),
			SinceDays:   viper.GetInt("shopify.since_days"),
			Status:      viper.GetString("shopify.status"),
		},
		KnowledgeBase: types.KnowledgeBaseConfig{
			HTTPConfig: httpCfg,
			BaseURL:    viper.GetString("elevenlabs.base_url"),
			APIKey:     loadedSecrets.Get("elevenlabs-api-key", viper.GetString("elevenlabs.api_key")),
			MaxRetries: viper.GetInt("elevenlabs.max_retries"),
		},
		Sync: types.SyncConfig{
			StateDir: sd,
			Force:    force,
			AgentIDs: agents,
		},
	}
	return cfg, nil
}

// stateDir resolves the effective state directory, matching the store's
// default.
func stateDir(cfg types.PipelineConfig) string {
	if cfg.Sync.StateDir != "" {
		return cfg.Sync.StateDir
	}
	return "state"
}
