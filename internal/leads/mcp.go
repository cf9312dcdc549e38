package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BerylCAtieno/radiant-launch-agent/internal/models"
)

const (
	toolPullContacts = "pull_contacts"
	toolPushLead     = "push_lead"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type toolResult struct {
	Content           []toolContent   `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// MCPStore talks to a remote CRM exposing pull_contacts and push_lead as
// JSON-RPC 2.0 tools over HTTP.
type MCPStore struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewMCPStore creates a client for the tool server at url.
func NewMCPStore(url string, timeout time.Duration) *MCPStore {
	return &MCPStore{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (m *MCPStore) Pull(ctx context.Context, filter string) ([]models.Lead, error) {
	res, err := m.callTool(ctx, toolPullContacts, map[string]any{"filter": filter})
	if err != nil {
		return nil, err
	}
	leads, err := decodeContacts(res)
	if err != nil {
		return nil, err
	}
	// The remote side may match loosely; keep local semantics.
	return Filter(leads, filter), nil
}

func (m *MCPStore) Push(ctx context.Context, lead models.Lead) error {
	_, err := m.callTool(ctx, toolPushLead, map[string]any(lead))
	return err
}

func (m *MCPStore) callTool(ctx context.Context, name string, args map[string]any) (*toolResult, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      m.nextID.Add(1),
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: args},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed with status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("invalid %s response: %w", name, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s error %d: %s", name, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	var res toolResult
	if len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, &res); err != nil {
			return nil, fmt.Errorf("invalid %s result: %w", name, err)
		}
	}
	if res.IsError {
		return nil, fmt.Errorf("%s reported an error: %s", name, res.text())
	}
	return &res, nil
}

func (r *toolResult) text() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// decodeContacts reads leads from structuredContent ({"contacts": [...]} or
// a bare array) and falls back to the first text block holding JSON.
func decodeContacts(res *toolResult) ([]models.Lead, error) {
	if len(res.StructuredContent) > 0 {
		var wrapped struct {
			Contacts []models.Lead `json:"contacts"`
		}
		if err := json.Unmarshal(res.StructuredContent, &wrapped); err == nil && wrapped.Contacts != nil {
			return wrapped.Contacts, nil
		}
		var bare []models.Lead
		if err := json.Unmarshal(res.StructuredContent, &bare); err == nil {
			return bare, nil
		}
	}
	for _, c := range res.Content {
		if c.Type != "text" {
			continue
		}
		var leads []models.Lead
		if err := json.Unmarshal([]byte(c.Text), &leads); err == nil {
			return leads, nil
		}
	}
	return nil, fmt.Errorf("%s returned no contact list", toolPullContacts)
}
