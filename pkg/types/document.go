// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model and configuration structs
// for the knowledge-base sync pipeline.
package types

import "time"

// SourceKind identifies which kind of content source produced a document.
type SourceKind string

const (
	KindFAQ     SourceKind = "faq"
	KindLegal   SourceKind = "legal"
	KindOrders  SourceKind = "orders"
	KindProduct SourceKind = "product"
)

// Document is one logical unit of content to synchronize. Documents are
// produced fresh on every run and never persisted; only their fingerprints
// are recorded.
type Document struct {
	// ID is the stable key for the document, derived from the source and
	// logical name (e.g. a page slug, or "orders").
	ID string `json:"id" yaml:"id"`

	// Title is the human-readable name used for the remote document.
	Title string `json:"title" yaml:"title"`

	// Body is the full text content.
	Body string `json:"body" yaml:"body"`

	// Kind records which source family produced the document.
	Kind SourceKind `json:"kind" yaml:"kind"`
}

// FingerprintRecord is the persisted sync state for one document id.
// ContentHash always reflects the body that was last successfully pushed
// to the remote knowledge base, never a hash computed but not confirmed
// uploaded.
type FingerprintRecord struct {
	// DocID is the document id the record belongs to.
	DocID string `json:"doc_id" yaml:"doc_id"`

	// ContentHash is the digest of the last successfully uploaded body.
	ContentHash string `json:"content_hash" yaml:"content_hash"`

	// RemoteDocID is the identifier assigned by the knowledge base on the
	// first successful create. Empty until a create has succeeded.
	RemoteDocID string `json:"remote_doc_id" yaml:"remote_doc_id"`

	// LastSyncedAt is when the document was last successfully pushed.
	LastSyncedAt time.Time `json:"last_synced_at" yaml:"last_synced_at"`

	// AgentIDs lists the conversational agents the remote document is
	// currently assigned to.
	AgentIDs []string `json:"agent_ids" yaml:"agent_ids"`

	// PendingRetry marks a record whose last push (or agent assignment)
	// failed, so the next run re-uploads even if the body is unchanged.
	PendingRetry bool `json:"pending_retry,omitempty" yaml:"pending_retry,omitempty"`
}
