// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taurbull/kbsync/internal/elevenlabs"
	"github.com/taurbull/kbsync/internal/shopify"
	"github.com/taurbull/kbsync/internal/source"
	"github.com/taurbull/kbsync/internal/state"
	"github.com/taurbull/kbsync/internal/syncer"
	"github.com/taurbull/kbsync/pkg/types"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove state for documents no configured source produces anymore",
	Long: `Prune deletes fingerprint records whose document id no longer matches any
configured page or source, and removes the corresponding remote documents
from the knowledge base. Use --keep-remote to drop only the local state.`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().Bool("keep-remote", false, "keep remote documents, drop only local state")

	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}
	keepRemote, _ := cmd.Flags().GetBool("keep-remote")

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
	engine := syncer.NewEngine(store, kb, cfg.Sync)

	summary, err := engine.Prune(cmd.Context(), keepActive(cfg), keepRemote, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to prune", summary.Failed)
	}
	return nil
}

// keepActive decides which stored document ids the configured sources can
// still produce. Page and order ids are known from config; product ids
// are dynamic, so every product document is kept while the product source
// is configured.
func keepActive(cfg types.PipelineConfig) func(docID string) bool {
	var ids []string
	for _, page := range cfg.Scrape.Pages {
		ids = append(ids, page.Name)
	}
	if cfg.Shopify.AccessToken != "" {
		ids = append(ids, shopify.OrderDocID)
	}
	keepIDs := syncer.KeepIDs(ids...)

	return func(docID string) bool {
		if cfg.Product.CatalogURL != "" && strings.HasPrefix(docID, source.ProductIDPrefix) {
			return true
		}
		return keepIDs(docID)
	}
}
