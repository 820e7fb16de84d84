// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package elevenlabs is a client for the ElevenLabs conversational-AI
// knowledge-base API: text document create/delete/list and agent
// assignment. Failures are reported as typed APIError values so callers
// can distinguish transient faults from permanent rejections.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/taurbull/kbsync/internal/httputil"
	"github.com/taurbull/kbsync/pkg/types"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// Client talks to the knowledge-base API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	httpClient *http.Client
}

// NewClient builds a Client from config. A nil httpClient falls back to a
// client with the configured timeout.
func NewClient(cfg types.KnowledgeBaseConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		httpClient: httpClient,
	}
}

// DocumentInfo describes one knowledge-base document as listed by the API.
type DocumentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createDocumentRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type createDocumentResponse struct {
	ID string `json:"id"`
	// Some API revisions report the id under document_id.
	DocumentID string `json:"document_id"`
}

type listDocumentsResponse struct {
	Documents []DocumentInfo `json:"documents"`
}

// CreateDocument uploads a text document and returns its remote id.
func (c *Client) CreateDocument(ctx context.Context, name, text string) (string, error) {
	const op = "create document"

	body, err := c.do(ctx, op, http.MethodPost, "/convai/knowledge-base/text",
		createDocumentRequest{Name: name, Text: text})
	if err != nil {
		return "", err
	}

	var created createDocumentResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &APIError{Op: op, Kind: KindPermanent, Err: fmt.Errorf("parsing response: %w", err)}
	}

	id := created.ID
	if id == "" {
		id = created.DocumentID
	}
	if id == "" {
		return "", &APIError{Op: op, Kind: KindPermanent, Err: fmt.Errorf("response carried no document id")}
	}
	return id, nil
}

// UpdateDocument replaces the content of a document. The API has no
// in-place text update, so the old document is deleted and a fresh one
// created; the returned id is the replacement id, which the caller must
// store. A missing docID surfaces as a KindNotFound error.
func (c *Client) UpdateDocument(ctx context.Context, docID, name, text string) (string, error) {
	if err := c.DeleteDocument(ctx, docID); err != nil {
		return "", err
	}
	return c.CreateDocument(ctx, name, text)
}

// DeleteDocument removes a document from the knowledge base.
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	_, err := c.do(ctx, "delete document", http.MethodDelete, "/convai/knowledge-base/"+docID, nil)
	return err
}

// ListDocuments returns the documents currently in the knowledge base.
func (c *Client) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	const op = "list documents"

	body, err := c.do(ctx, op, http.MethodGet, "/convai/knowledge-base", nil)
	if err != nil {
		return nil, err
	}

	var listed listDocumentsResponse
	if err := json.Unmarshal(body, &listed); err != nil {
		return nil, &APIError{Op: op, Kind: KindPermanent, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return listed.Documents, nil
}

// Agent configuration wire shapes. Only the knowledge-base list is
// round-tripped; the PATCH body carries just that list so other agent
// settings stay untouched.
type agentResponse struct {
	ConversationConfig struct {
		Agent struct {
			Prompt struct {
				KnowledgeBase []agentKnowledgeBaseEntry `json:"knowledge_base"`
			} `json:"prompt"`
		} `json:"agent"`
	} `json:"conversation_config"`
}

type agentKnowledgeBaseEntry struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type agentPatchRequest struct {
	ConversationConfig struct {
		Agent struct {
			Prompt struct {
				KnowledgeBase []agentKnowledgeBaseEntry `json:"knowledge_base"`
			} `json:"prompt"`
		} `json:"agent"`
	} `json:"conversation_config"`
}

// AssignAgent adds a document to an agent's knowledge-base list. Updates
// replace remote documents under a fresh id, so entries carrying the same
// name but a different id are stale references to a deleted predecessor
// and are dropped in the same PATCH. The call is idempotent: when the
// document is already assigned and no stale entries remain, nothing is
// sent.
func (c *Client) AssignAgent(ctx context.Context, agentID, docID, name string) error {
	const op = "assign agent"

	entries, err := c.agentKnowledgeBase(ctx, op, agentID)
	if err != nil {
		return err
	}

	kept := make([]agentKnowledgeBaseEntry, 0, len(entries)+1)
	present := false
	stale := false
	for _, entry := range entries {
		switch {
		case entry.ID == docID:
			present = true
			kept = append(kept, entry)
		case entry.Name == name:
			stale = true
		default:
			kept = append(kept, entry)
		}
	}
	if present && !stale {
		return nil
	}
	if !present {
		kept = append(kept, agentKnowledgeBaseEntry{Type: "text", ID: docID, Name: name})
	}
	return c.patchAgentKnowledgeBase(ctx, op, agentID, kept)
}

// UnassignAgent removes a document from an agent's knowledge-base list.
// A document that is not assigned is a no-op.
func (c *Client) UnassignAgent(ctx context.Context, agentID, docID string) error {
	const op = "unassign agent"

	entries, err := c.agentKnowledgeBase(ctx, op, agentID)
	if err != nil {
		return err
	}

	kept := make([]agentKnowledgeBaseEntry, 0, len(entries))
	removed := false
	for _, entry := range entries {
		if entry.ID == docID {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return nil
	}
	return c.patchAgentKnowledgeBase(ctx, op, agentID, kept)
}

func (c *Client) agentKnowledgeBase(ctx context.Context, op, agentID string) ([]agentKnowledgeBaseEntry, error) {
	body, err := c.do(ctx, op, http.MethodGet, "/convai/agents/"+agentID, nil)
	if err != nil {
		return nil, err
	}

	var agent agentResponse
	if err := json.Unmarshal(body, &agent); err != nil {
		return nil, &APIError{Op: op, Kind: KindPermanent, Err: fmt.Errorf("parsing agent: %w", err)}
	}
	return agent.ConversationConfig.Agent.Prompt.KnowledgeBase, nil
}

func (c *Client) patchAgentKnowledgeBase(ctx context.Context, op, agentID string, entries []agentKnowledgeBaseEntry) error {
	var patch agentPatchRequest
	patch.ConversationConfig.Agent.Prompt.KnowledgeBase = entries
	_, err := c.do(ctx, op, http.MethodPatch, "/convai/agents/"+agentID, patch)
	return err
}

// do issues one API request and returns the response body. Non-2xx
// responses and connection errors come back as *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &APIError{Op: op, Kind: KindPermanent, Err: fmt.Errorf("encoding request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &APIError{Op: op, Kind: KindPermanent, Err: err}
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.maxRetries)
	if err != nil {
		return nil, &APIError{Op: op, Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, Kind: KindTransient, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Op:         op,
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
