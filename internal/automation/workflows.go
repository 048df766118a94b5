package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/royscompany/royscompany-api/pkg/logging"
)

// ErrWorkflowNameMissing is returned for a workflow definition without a name.
var ErrWorkflowNameMissing = errors.New("automation: workflow has no name")

// Workflow is an n8n workflow definition. Unknown fields are preserved.
type Workflow map[string]any

// Name returns the workflow's "name" field.
func (w Workflow) Name() string {
	name, _ := w["name"].(string)
	return name
}

// ensureSettings sets settings.executionOrder to v1 when no settings exist.
func (w Workflow) ensureSettings() {
	if _, ok := w["settings"]; !ok {
		w["settings"] = map[string]any{"executionOrder": "v1"}
	}
}

// WorkflowClient talks to the n8n public API.
type WorkflowClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewWorkflowClient creates a client for the n8n instance at baseURL.
func NewWorkflowClient(baseURL, apiKey string, logger *logging.Logger) *WorkflowClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &WorkflowClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type workflowSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List returns existing workflow ids keyed by name.
func (c *WorkflowClient) List(ctx context.Context) (map[string]string, error) {
	var page struct {
		Data []workflowSummary `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/workflows", nil, &page); err != nil {
		return nil, fmt.Errorf("automation: list workflows: %w", err)
	}
	if page.Data == nil {
		return nil, fmt.Errorf("automation: list workflows: response has no data")
	}
	out := make(map[string]string, len(page.Data))
	for _, wf := range page.Data {
		out[wf.Name] = wf.ID
	}
	return out, nil
}

// Create adds a new workflow.
func (c *WorkflowClient) Create(ctx context.Context, wf Workflow) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/workflows", wf, nil); err != nil {
		return fmt.Errorf("automation: create %q: %w", wf.Name(), err)
	}
	return nil
}

// Update replaces the workflow with the given id.
func (c *WorkflowClient) Update(ctx context.Context, id string, wf Workflow) error {
	if err := c.do(ctx, http.MethodPut, "/api/v1/workflows/"+id, wf, nil); err != nil {
		return fmt.Errorf("automation: update %q: %w", wf.Name(), err)
	}
	return nil
}

// SyncReport summarizes a Sync run.
type SyncReport struct {
	Created []string
	Updated []string
	Failed  map[string]error
}

// Sync creates or updates every *.json workflow in dir, matching by name.
// Per-file failures are collected in the report; only a failed listing aborts.
func (c *WorkflowClient) Sync(ctx context.Context, dir string) (*SyncReport, error) {
	existing, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("fetched existing workflows", "count", len(existing))

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("automation: glob %s: %w", dir, err)
	}
	sort.Strings(files)

	report := &SyncReport{Failed: map[string]error{}}
	for _, path := range files {
		file := filepath.Base(path)
		wf, err := LoadWorkflow(path)
		if err != nil {
			c.logger.Error("skipping workflow file", "file", file, "error", err)
			report.Failed[file] = err
			continue
		}
		name := wf.Name()
		if id, ok := existing[name]; ok {
			if err := c.Update(ctx, id, wf); err != nil {
				report.Failed[file] = err
				continue
			}
			report.Updated = append(report.Updated, name)
			continue
		}
		if err := c.Create(ctx, wf); err != nil {
			report.Failed[file] = err
			continue
		}
		report.Created = append(report.Created, name)
	}
	return report, nil
}

// LoadWorkflow reads a workflow definition and fills in default settings.
func LoadWorkflow(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("automation: read %s: %w", path, err)
	}
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("automation: parse %s: %w", filepath.Base(path), err)
	}
	if wf.Name() == "" {
		return nil, ErrWorkflowNameMissing
	}
	wf.ensureSettings()
	return wf, nil
}

func (c *WorkflowClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-N8N-API-KEY", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("n8n api status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
