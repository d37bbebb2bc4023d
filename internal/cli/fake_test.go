package cli

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGitHub records what the CLI posts and serves an in-memory contents
// API keyed by owner/repo, branch and path.
type fakeGitHub struct {
	mu             sync.Mutex
	pullFiles      []map[string]string
	issueComments  []string
	commitComments []string
	reviewComments []map[string]any
	dispatches     []map[string]any
	files          map[string][]byte
	// status, when set, fails every request with that code.
	status int
}

func contentKey(owner, repo, branch, path string) string {
	return owner + "/" + repo + "@" + branch + ":" + path
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *httptest.Server) {
	t.Helper()
	f := &fakeGitHub{files: make(map[string][]byte)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls/{n}/files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(f.pullFiles)
	})
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues/{n}/comments", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Body string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.issueComments = append(f.issueComments, req.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /repos/{owner}/{repo}/commits/{sha}/comments", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Body string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.commitComments = append(f.commitComments, req.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /repos/{owner}/{repo}/pulls/{n}/comments", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.reviewComments = append(f.reviewComments, req)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /repos/{owner}/{repo}/actions/workflows/{wf}/dispatches", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		req["workflow"] = r.PathValue("wf")
		req["repo"] = r.PathValue("owner") + "/" + r.PathValue("repo")
		f.dispatches = append(f.dispatches, req)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		key := contentKey(r.PathValue("owner"), r.PathValue("repo"), r.URL.Query().Get("ref"), r.PathValue("path"))
		data, ok := f.files[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sha":      fmt.Sprintf("%x", sha1.Sum(data)),
			"content":  base64.StdEncoding.EncodeToString(data),
			"encoding": "base64",
		})
	})
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string
			SHA     string
			Branch  string
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data, err := base64.StdEncoding.DecodeString(req.Content)
		require.NoError(t, err)
		key := contentKey(r.PathValue("owner"), r.PathValue("repo"), req.Branch, r.PathValue("path"))
		if current, ok := f.files[key]; ok && req.SHA != fmt.Sprintf("%x", sha1.Sum(current)) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.files[key] = data
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"sha": fmt.Sprintf("%x", sha1.Sum(data))},
		})
	})
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Branch string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		key := contentKey(r.PathValue("owner"), r.PathValue("repo"), req.Branch, r.PathValue("path"))
		delete(f.files, key)
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.status != 0 {
			w.WriteHeader(f.status)
			w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}
