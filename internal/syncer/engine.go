// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/taurbull/kbsync/internal/elevenlabs"
	"github.com/taurbull/kbsync/internal/state"
	"github.com/taurbull/kbsync/pkg/types"
)

// KnowledgeBase is the narrow remote contract the engine depends on.
// UpdateDocument returns the id of the document after the update; when
// the remote store replaces documents on update, that id differs from
// the one passed in and must be stored.
type KnowledgeBase interface {
	CreateDocument(ctx context.Context, name, text string) (string, error)
	UpdateDocument(ctx context.Context, docID, name, text string) (string, error)
	DeleteDocument(ctx context.Context, docID string) error
	AssignAgent(ctx context.Context, agentID, docID, name string) error
	UnassignAgent(ctx context.Context, agentID, docID string) error
}

// Action is the per-document reconciliation decision.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Engine reconciles freshly produced documents against the fingerprint
// store and drives remote create/update calls.
type Engine struct {
	store    *state.Store
	kb       KnowledgeBase
	agentIDs []string
	force    bool
	now      func() time.Time
}

// NewEngine builds an Engine. All collaborators are explicit; the engine
// holds no global state.
func NewEngine(store *state.Store, kb KnowledgeBase, cfg types.SyncConfig) *Engine {
	return &Engine{
		store:    store,
		kb:       kb,
		agentIDs: cfg.AgentIDs,
		force:    cfg.Force,
		now:      time.Now,
	}
}

// Failure records one document that could not be synced.
type Failure struct {
	DocID string
	Err   error
}

// RunSummary holds counts from one sync run.
type RunSummary struct {
	Created  int
	Updated  int
	Skipped  int
	Failed   int
	Failures []Failure
}

// Total returns the number of documents considered.
func (s RunSummary) Total() int {
	return s.Created + s.Updated + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// Sync processes every document exactly once, isolating per-document
// failures: a failed document is counted and reported but never blocks
// its siblings. Only store persistence errors abort the run, since a lost
// store risks duplicate creates on the next run.
func (e *Engine) Sync(ctx context.Context, docs []types.Document, w io.Writer) (RunSummary, error) {
	var summary RunSummary

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rec, err := e.store.Get(ctx, doc.ID)
		if err != nil {
			return summary, err
		}

		hash := Fingerprint(doc.Body)
		action := e.decide(rec, hash)
		if action == ActionSkip {
			fmt.Fprintf(w, "skipped %s\n", doc.ID)
			summary.Skipped++
			continue
		}

		remoteID, pushErr := e.push(ctx, action, rec, doc)
		if pushErr != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", doc.ID, pushErr)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{DocID: doc.ID, Err: pushErr})

			// The stored hash still reflects the last confirmed upload.
			// Mark the record so the next run retries even when the body
			// has not changed again. A failed first create has no record
			// to mark; it is naturally retried as a create next run.
			if rec != nil {
				rec.PendingRetry = true
				if perr := e.store.Put(ctx, rec); perr != nil {
					return summary, perr
				}
			}
			continue
		}

		assigned, assignErr := e.assign(ctx, remoteID, doc)
		updated := &types.FingerprintRecord{
			DocID:        doc.ID,
			ContentHash:  hash,
			RemoteDocID:  remoteID,
			LastSyncedAt: e.now(),
			AgentIDs:     assigned,
			PendingRetry: assignErr != nil,
		}
		if err := e.store.Put(ctx, updated); err != nil {
			return summary, err
		}

		if assignErr != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", doc.ID, assignErr)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{DocID: doc.ID, Err: assignErr})
			continue
		}

		if action == ActionCreate {
			fmt.Fprintf(w, "created %s -> %s\n", doc.ID, remoteID)
			summary.Created++
		} else {
			fmt.Fprintf(w, "updated %s -> %s\n", doc.ID, remoteID)
			summary.Updated++
		}
	}

	fmt.Fprintf(w, "\ncreated: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Created, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

// decide picks the action for one document. Decisions are independent per
// document id.
func (e *Engine) decide(rec *types.FingerprintRecord, hash string) Action {
	switch {
	case rec == nil:
		return ActionCreate
	case e.force || rec.PendingRetry:
		return ActionUpdate
	case rec.ContentHash != hash:
		return ActionUpdate
	default:
		return ActionSkip
	}
}

// push performs the remote call for action and returns the remote id the
// document now lives under. An update hitting a vanished remote document
// falls back to create once, so the stale id is replaced rather than
// resurrected.
func (e *Engine) push(ctx context.Context, action Action, rec *types.FingerprintRecord, doc types.Document) (string, error) {
	if action == ActionCreate {
		return e.kb.CreateDocument(ctx, doc.Title, doc.Body)
	}

	remoteID, err := e.kb.UpdateDocument(ctx, rec.RemoteDocID, doc.Title, doc.Body)
	if elevenlabs.IsNotFound(err) {
		return e.kb.CreateDocument(ctx, doc.Title, doc.Body)
	}
	return remoteID, err
}

// assign attaches the document to every configured agent, returning the
// agents that now hold it. Assignment is idempotent on the remote side;
// only the first error is reported.
func (e *Engine) assign(ctx context.Context, remoteID string, doc types.Document) ([]string, error) {
	var assigned []string
	for _, agentID := range e.agentIDs {
		if err := e.kb.AssignAgent(ctx, agentID, remoteID, doc.Title); err != nil {
			return assigned, fmt.Errorf("assigning %s to agent %s: %w", doc.ID, agentID, err)
		}
		assigned = append(assigned, agentID)
	}
	return assigned, nil
}
