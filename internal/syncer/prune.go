// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"context"
	"fmt"
	"io"

	"github.com/taurbull/kbsync/internal/elevenlabs"
	"github.com/taurbull/kbsync/pkg/types"
)

// PruneSummary holds counts from one pruning pass.
type PruneSummary struct {
	Pruned int
	Kept   int
	Failed int
}

// KeepIDs builds a keep predicate from a fixed set of document ids.
func KeepIDs(ids ...string) func(docID string) bool {
	active := make(map[string]bool, len(ids))
	for _, id := range ids {
		active[id] = true
	}
	return func(docID string) bool { return active[docID] }
}

// Prune removes fingerprint records whose document ids no content source
// produces anymore, as decided by the keep predicate. Unless keepRemote
// is set, the corresponding remote documents are deleted, after being
// unassigned from every agent the record names so no dangling references
// stay behind. A remote document that is already gone counts as pruned,
// not failed. Pruning is an explicit operation; Sync never removes
// records.
func (e *Engine) Prune(ctx context.Context, keep func(docID string) bool, keepRemote bool, w io.Writer) (PruneSummary, error) {
	records, err := e.store.All(ctx)
	if err != nil {
		return PruneSummary{}, err
	}

	var summary PruneSummary
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if keep(rec.DocID) {
			summary.Kept++
			continue
		}

		if !keepRemote && rec.RemoteDocID != "" {
			if err := e.unassignAll(ctx, rec); err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", rec.DocID, err)
				summary.Failed++
				continue
			}
			err := e.kb.DeleteDocument(ctx, rec.RemoteDocID)
			if err != nil && !elevenlabs.IsNotFound(err) {
				fmt.Fprintf(w, "failed  %s: %v\n", rec.DocID, err)
				summary.Failed++
				continue
			}
		}

		if err := e.store.Delete(ctx, rec.DocID); err != nil {
			return summary, err
		}
		fmt.Fprintf(w, "pruned  %s\n", rec.DocID)
		summary.Pruned++
	}

	fmt.Fprintf(w, "\npruned: %d, kept: %d, failed: %d\n", summary.Pruned, summary.Kept, summary.Failed)
	return summary, nil
}

// unassignAll detaches the record's remote document from every agent it
// was assigned to. An agent that no longer lists the document is fine.
func (e *Engine) unassignAll(ctx context.Context, rec types.FingerprintRecord) error {
	for _, agentID := range rec.AgentIDs {
		if err := e.kb.UnassignAgent(ctx, agentID, rec.RemoteDocID); err != nil && !elevenlabs.IsNotFound(err) {
			return fmt.Errorf("unassigning from agent %s: %w", agentID, err)
		}
	}
	return nil
}
