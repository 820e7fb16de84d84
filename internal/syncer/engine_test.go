// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurbull/kbsync/internal/elevenlabs"
	"github.com/taurbull/kbsync/internal/state"
	"github.com/taurbull/kbsync/pkg/types"
)

// fakeKB is an in-memory KnowledgeBase that records calls and can be
// scripted to fail.
type fakeKB struct {
	nextID        int
	docs          map[string]string // remote id -> text
	createCalls   []string          // document names
	updateCalls   []string          // remote ids passed in
	deleteCalls   []string
	assignCalls   []string // "agentID/docID"
	unassignCalls []string // "agentID/docID"
	createErr     func(name string) error
	updateErr     func(docID string) error
	deleteErr     func(docID string) error
	assignErr     error
}

func newFakeKB() *fakeKB {
	return &fakeKB{docs: make(map[string]string)}
}

func (f *fakeKB) CreateDocument(_ context.Context, name, text string) (string, error) {
	f.createCalls = append(f.createCalls, name)
	if f.createErr != nil {
		if err := f.createErr(name); err != nil {
			return "", err
		}
	}
	f.nextID++
	id := fmt.Sprintf("remote-%d", f.nextID)
	f.docs[id] = text
	return id, nil
}

func (f *fakeKB) UpdateDocument(_ context.Context, docID, _, text string) (string, error) {
	f.updateCalls = append(f.updateCalls, docID)
	if f.updateErr != nil {
		if err := f.updateErr(docID); err != nil {
			return "", err
		}
	}
	if _, ok := f.docs[docID]; !ok {
		return "", &elevenlabs.APIError{Op: "update document", Kind: elevenlabs.KindNotFound, StatusCode: http.StatusNotFound}
	}
	f.docs[docID] = text
	return docID, nil
}

func (f *fakeKB) DeleteDocument(_ context.Context, docID string) error {
	f.deleteCalls = append(f.deleteCalls, docID)
	if f.deleteErr != nil {
		if err := f.deleteErr(docID); err != nil {
			return err
		}
	}
	if _, ok := f.docs[docID]; !ok {
		return &elevenlabs.APIError{Op: "delete document", Kind: elevenlabs.KindNotFound, StatusCode: http.StatusNotFound}
	}
	delete(f.docs, docID)
	return nil
}

func (f *fakeKB) AssignAgent(_ context.Context, agentID, docID, _ string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assignCalls = append(f.assignCalls, agentID+"/"+docID)
	return nil
}

func (f *fakeKB) UnassignAgent(_ context.Context, agentID, docID string) error {
	f.unassignCalls = append(f.unassignCalls, agentID+"/"+docID)
	return nil
}

func (f *fakeKB) remoteCalls() int {
	return len(f.createCalls) + len(f.updateCalls) + len(f.deleteCalls)
}

func testEngine(t *testing.T, kb KnowledgeBase, cfg types.SyncConfig) *Engine {
	t.Helper()
	cfg.StateDir = t.TempDir()
	store, err := state.NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, kb, cfg)
}

func faqDoc(body string) types.Document {
	return types.Document{ID: "faq-delivery", Title: "faq-delivery", Body: body, Kind: types.KindFAQ}
}

func mustSync(t *testing.T, e *Engine, docs []types.Document) RunSummary {
	t.Helper()
	summary, err := e.Sync(context.Background(), docs, &bytes.Buffer{})
	require.NoError(t, err)
	return summary
}

func TestSync_FirstRunCreates(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})

	summary := mustSync(t, e, []types.Document{faqDoc("We ship in 3 days.")})

	assert.Equal(t, RunSummary{Created: 1}, summary)
	require.Len(t, kb.createCalls, 1)

	rec, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.RemoteDocID)
	assert.Equal(t, Fingerprint("We ship in 3 days."), rec.ContentHash)
	assert.False(t, rec.PendingRetry)
}

func TestSync_UnchangedContentMakesNoRemoteCalls(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})
	docs := []types.Document{faqDoc("We ship in 3 days.")}

	mustSync(t, e, docs)
	callsAfterFirst := kb.remoteCalls()

	summary := mustSync(t, e, docs)

	assert.Equal(t, RunSummary{Skipped: 1}, summary)
	assert.Equal(t, callsAfterFirst, kb.remoteCalls(), "second run must make zero remote calls")
}

func TestSync_ChangedBodyUpdatesOnlyThatDocument(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})

	docs := []types.Document{
		faqDoc("We ship in 3 days."),
		{ID: "terms", Title: "terms", Body: "Terms of service.", Kind: types.KindLegal},
	}
	mustSync(t, e, docs)

	before, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)

	docs[0].Body = "We ship in 2 days."
	summary := mustSync(t, e, docs)

	assert.Equal(t, RunSummary{Updated: 1, Skipped: 1}, summary)
	require.Len(t, kb.updateCalls, 1)
	assert.Equal(t, before.RemoteDocID, kb.updateCalls[0], "update must target the stored remote id")

	after, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("We ship in 2 days."), after.ContentHash)
	assert.NotEqual(t, before.ContentHash, after.ContentHash)
}

func TestSync_ForcedRefreshBypassesHashMatch(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{Force: true})
	docs := []types.Document{faqDoc("We ship in 3 days.")}

	first := mustSync(t, e, docs)
	assert.Equal(t, RunSummary{Created: 1}, first)

	second := mustSync(t, e, docs)
	assert.Equal(t, RunSummary{Updated: 1}, second, "force must update even with identical content")
	assert.Len(t, kb.updateCalls, 1)
}

func TestSync_NotFoundFallsBackToCreate(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})
	docs := []types.Document{faqDoc("We ship in 3 days.")}

	mustSync(t, e, docs)
	rec, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	staleID := rec.RemoteDocID

	// The remote document vanishes out from under us.
	delete(kb.docs, staleID)

	docs[0].Body = "We ship in 2 days."
	summary := mustSync(t, e, docs)

	assert.Equal(t, RunSummary{Updated: 1}, summary)
	require.Len(t, kb.createCalls, 2, "fallback create expected after NotFound")

	after, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	assert.NotEqual(t, staleID, after.RemoteDocID, "stale remote id must be replaced")
	assert.Contains(t, kb.docs, after.RemoteDocID)
}

func TestSync_FailureIsolation(t *testing.T) {
	kb := newFakeKB()
	kb.createErr = func(name string) error {
		if name == "poison" {
			return &elevenlabs.APIError{Op: "create document", Kind: elevenlabs.KindPermanent, StatusCode: http.StatusUnprocessableEntity}
		}
		return nil
	}
	e := testEngine(t, kb, types.SyncConfig{})

	docs := []types.Document{
		{ID: "a", Title: "a", Body: "alpha"},
		{ID: "poison", Title: "poison", Body: "bad"},
		{ID: "b", Title: "b", Body: "beta"},
	}
	summary := mustSync(t, e, docs)

	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "poison", summary.Failures[0].DocID)

	for _, id := range []string{"a", "b"} {
		rec, err := e.store.Get(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, rec, "sibling %s must still be recorded", id)
		assert.NotEmpty(t, rec.RemoteDocID)
	}

	// A failed first create leaves no record; it retries as create next run.
	rec, err := e.store.Get(context.Background(), "poison")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSync_EmptyBodyIsValidContent(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})

	summary := mustSync(t, e, []types.Document{faqDoc("")})

	assert.Equal(t, RunSummary{Created: 1}, summary)
	assert.Len(t, kb.createCalls, 1)
}

func TestSync_FailedUpdateSetsPendingRetry(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})
	docs := []types.Document{faqDoc("We ship in 3 days.")}

	mustSync(t, e, docs)
	before, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)

	kb.updateErr = func(string) error {
		return &elevenlabs.APIError{Op: "update document", Kind: elevenlabs.KindTransient, StatusCode: http.StatusServiceUnavailable}
	}
	docs[0].Body = "We ship in 2 days."
	summary := mustSync(t, e, docs)
	assert.Equal(t, 1, summary.Failed)

	rec, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	assert.Equal(t, before.ContentHash, rec.ContentHash, "hash must reflect the last confirmed upload")
	assert.True(t, rec.PendingRetry)

	// Even if the body reverts to the recorded content, the pending flag
	// forces a retry next run.
	kb.updateErr = nil
	docs[0].Body = "We ship in 3 days."
	retry := mustSync(t, e, docs)
	assert.Equal(t, RunSummary{Updated: 1}, retry)

	cleared, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	assert.False(t, cleared.PendingRetry)
}

func TestSync_AssignsConfiguredAgents(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{AgentIDs: []string{"agent-1", "agent-2"}})

	mustSync(t, e, []types.Document{faqDoc("We ship in 3 days.")})

	rec, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-1", "agent-2"}, rec.AgentIDs)
	assert.Equal(t, []string{
		"agent-1/" + rec.RemoteDocID,
		"agent-2/" + rec.RemoteDocID,
	}, kb.assignCalls)
}

func TestSync_AssignmentFailureMarksPendingRetry(t *testing.T) {
	kb := newFakeKB()
	kb.assignErr = &elevenlabs.APIError{Op: "assign agent", Kind: elevenlabs.KindTransient, StatusCode: http.StatusBadGateway}
	e := testEngine(t, kb, types.SyncConfig{AgentIDs: []string{"agent-1"}})

	summary := mustSync(t, e, []types.Document{faqDoc("We ship in 3 days.")})
	assert.Equal(t, 1, summary.Failed)

	// Content was pushed, so the hash is recorded; the pending flag makes
	// the next run redo the push and assignment.
	rec, err := e.store.Get(context.Background(), "faq-delivery")
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("We ship in 3 days."), rec.ContentHash)
	assert.True(t, rec.PendingRetry)
	assert.Empty(t, rec.AgentIDs)
}

func TestPrune_RemovesStaleRecordsOnly(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})

	docs := []types.Document{
		{ID: "faq", Title: "faq", Body: "questions"},
		{ID: "old-page", Title: "old-page", Body: "obsolete"},
	}
	mustSync(t, e, docs)

	stale, err := e.store.Get(context.Background(), "old-page")
	require.NoError(t, err)

	summary, err := e.Prune(context.Background(), KeepIDs("faq"), false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, PruneSummary{Pruned: 1, Kept: 1}, summary)

	gone, err := e.store.Get(context.Background(), "old-page")
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.NotContains(t, kb.docs, stale.RemoteDocID, "remote document must be deleted")

	kept, err := e.store.Get(context.Background(), "faq")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestPrune_RemoteAlreadyGoneCountsAsPruned(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})

	mustSync(t, e, []types.Document{{ID: "old-page", Title: "old-page", Body: "obsolete"}})
	rec, err := e.store.Get(context.Background(), "old-page")
	require.NoError(t, err)
	delete(kb.docs, rec.RemoteDocID)

	summary, err := e.Prune(context.Background(), KeepIDs(), false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, PruneSummary{Pruned: 1}, summary)
}

func TestPrune_KeepRemoteLeavesRemoteDocuments(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})

	mustSync(t, e, []types.Document{{ID: "old-page", Title: "old-page", Body: "obsolete"}})
	rec, err := e.store.Get(context.Background(), "old-page")
	require.NoError(t, err)

	summary, err := e.Prune(context.Background(), KeepIDs(), true, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, PruneSummary{Pruned: 1}, summary)
	assert.Contains(t, kb.docs, rec.RemoteDocID, "remote document must be kept")
	assert.Empty(t, kb.deleteCalls)
	assert.Empty(t, kb.unassignCalls, "assignments stay when the remote document stays")
}

func TestPrune_UnassignsAgentsBeforeRemoteDelete(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{AgentIDs: []string{"agent-1", "agent-2"}})

	mustSync(t, e, []types.Document{{ID: "old-page", Title: "old-page", Body: "obsolete"}})
	rec, err := e.store.Get(context.Background(), "old-page")
	require.NoError(t, err)

	summary, err := e.Prune(context.Background(), KeepIDs(), false, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, PruneSummary{Pruned: 1}, summary)
	assert.Equal(t, []string{
		"agent-1/" + rec.RemoteDocID,
		"agent-2/" + rec.RemoteDocID,
	}, kb.unassignCalls)
	assert.NotContains(t, kb.docs, rec.RemoteDocID)
}

func TestSync_WorkedExample(t *testing.T) {
	kb := newFakeKB()
	e := testEngine(t, kb, types.SyncConfig{})
	ctx := context.Background()

	// First run: create.
	mustSync(t, e, []types.Document{faqDoc("We ship in 3 days.")})
	require.Len(t, kb.createCalls, 1)
	rec1, err := e.store.Get(ctx, "faq-delivery")
	require.NoError(t, err)
	h1 := rec1.ContentHash

	// Second run, same body: no remote call.
	mustSync(t, e, []types.Document{faqDoc("We ship in 3 days.")})
	assert.Equal(t, 1, kb.remoteCalls())

	// Third run, changed body: update against the stored remote id.
	mustSync(t, e, []types.Document{faqDoc("We ship in 2 days.")})
	require.Len(t, kb.updateCalls, 1)
	assert.Equal(t, rec1.RemoteDocID, kb.updateCalls[0])

	rec2, err := e.store.Get(ctx, "faq-delivery")
	require.NoError(t, err)
	assert.NotEqual(t, h1, rec2.ContentHash)
}
