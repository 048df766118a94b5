package automation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type n8nStub struct {
	mu      sync.Mutex
	created []Workflow
	updated map[string]Workflow
}

func (s *n8nStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "n8n-key", r.Header.Get("X-N8N-API-KEY"))
		_, _ = w.Write([]byte(`{"data":[{"id":"wf-1","name":"Call Lead"}]}`))
	})
	mux.HandleFunc("POST /api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		var wf Workflow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wf))
		s.mu.Lock()
		s.created = append(s.created, wf)
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"wf-2"}`))
	})
	mux.HandleFunc("PUT /api/v1/workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		var wf Workflow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wf))
		s.mu.Lock()
		s.updated[r.PathValue("id")] = wf
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestWorkflowClient_Sync(t *testing.T) {
	stub := &n8nStub{updated: map[string]Workflow{}}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	dir := t.TempDir()
	writeFile(t, dir, "call.json", `{"name":"Call Lead","nodes":[]}`)
	writeFile(t, dir, "message.json", `{"name":"Message Lead","nodes":[],"settings":{"executionOrder":"v0"}}`)
	writeFile(t, dir, "broken.json", `{`)
	writeFile(t, dir, "anonymous.json", `{"nodes":[]}`)
	writeFile(t, dir, "notes.txt", `ignored`)

	client := NewWorkflowClient(srv.URL+"/", "n8n-key", testLogger())
	report, err := client.Sync(t.Context(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"Call Lead"}, report.Updated)
	assert.Equal(t, []string{"Message Lead"}, report.Created)
	assert.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed["anonymous.json"], ErrWorkflowNameMissing)
	assert.Contains(t, report.Failed, "broken.json")

	require.Contains(t, stub.updated, "wf-1")
	assert.Equal(t, map[string]any{"executionOrder": "v1"}, stub.updated["wf-1"]["settings"])
	require.Len(t, stub.created, 1)
	assert.Equal(t, map[string]any{"executionOrder": "v0"}, stub.created[0]["settings"])
}

func TestWorkflowClient_ListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"unauthorized"}`))
	}))
	defer srv.Close()

	client := NewWorkflowClient(srv.URL, "bad", testLogger())
	_, err := client.Sync(t.Context(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
