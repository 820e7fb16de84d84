// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taurbull/kbsync/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded sync state for every known document",
	Long: `Status lists every fingerprint record in the state store: document id,
remote document id, content hash, last sync time, and whether the document
is flagged for retry. Use --json for machine-readable output, or --export
to also write the state to fingerprints.yaml in the state directory.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "print records as JSON")
	statusCmd.Flags().Bool("export", false, "also write fingerprints.yaml to the state directory")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig(cmd)
	if err != nil {
		return err
	}

	store, err := state.NewStore(cfg.Sync)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.All(cmd.Context())
	if err != nil {
		return err
	}

	if export, _ := cmd.Flags().GetBool("export"); export {
		if err := store.ExportYAML(cmd.Context()); err != nil {
			return err
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No documents recorded. Run kbsync sync first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tREMOTE ID\tHASH\tLAST SYNCED\tRETRY")
	for _, rec := range records {
		retry := ""
		if rec.PendingRetry {
			retry = "pending"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.DocID,
			rec.RemoteDocID,
			shortHash(rec.ContentHash),
			rec.LastSyncedAt.Format("2006-01-02 15:04:05"),
			retry,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d document(s) tracked.\n", len(records))
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return strings.TrimSpace(hash)
}
