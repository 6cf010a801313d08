// Package blackbox exercises the manager and its HTTP surface together,
// end to end, against the six literal scenarios in the model repository
// manager's testable-properties section: a real filesystem repository, a
// real in-memory lifecycle engine, and requests routed through
// internal/httpapi.NewMux exactly as modelrepod wires it.
package blackbox

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"modelrepo/internal/httpapi"
	"modelrepo/internal/lifecycle"
	"modelrepo/internal/manager"
	"modelrepo/pkg/types"

	"github.com/rs/zerolog"
)

func writeModelDir(t *testing.T, repo, name, config string) {
	t.Helper()
	dir := filepath.Join(repo, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config for %s: %v", name, err)
	}
}

func newTestServer(t *testing.T, repo string, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg.Repositories = []string{repo}
	engine := lifecycle.NewMemoryEngine(0, 0)
	mgr := manager.New(cfg, engine, nil, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(mgr, nil))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// Scenario 1: startup model loads from a leaf repository and reports READY.
func TestScenario1StartupModelLoadsAndReportsReady(t *testing.T) {
	repo := t.TempDir()
	writeModelDir(t, repo, "A", `{"kind":"leaf"}`)

	_, mgr := newTestServer(t, repo, manager.ManagerConfig{PollingEnabled: true})

	if _, err := mgr.PollAndUpdate(); err != nil {
		t.Fatalf("PollAndUpdate: %v", err)
	}
	entries := mgr.RepositoryIndex(true)
	if len(entries) != 1 || entries[0].Name != "A" || entries[0].State != types.StateReady {
		t.Fatalf("unexpected ready index: %+v", entries)
	}
}

// Scenario 2: an ensemble depending on a leaf connects and both become ready.
func TestScenario2EnsembleConnectsToUpstream(t *testing.T) {
	repo := t.TempDir()
	writeModelDir(t, repo, "A", `{"kind":"leaf"}`)
	writeModelDir(t, repo, "E", `{"kind":"ensemble","steps":[{"model_name":"A"}]}`)

	srv, mgr := newTestServer(t, repo, manager.ManagerConfig{PollingEnabled: true})

	if _, err := mgr.PollAndUpdate(); err != nil {
		t.Fatalf("PollAndUpdate: %v", err)
	}
	entries := mgr.RepositoryIndex(true)
	states := map[string]types.ReadyState{}
	for _, e := range entries {
		states[e.Name] = e.State
	}
	if states["A"] != types.StateReady || states["E"] != types.StateReady {
		t.Fatalf("expected both A and E ready, got %+v", entries)
	}

	var idx []types.RepositoryIndexEntry
	if code := getJSON(t, srv.URL+"/v2/repository/index", &idx); code != http.StatusOK {
		t.Fatalf("GET index status=%d", code)
	}
}

// Scenario 3: modifying the leaf on disk re-polls without error and the
// index still lists models afterwards.
func TestScenario3ModifyingUpstreamRepollsAndKeepsIndex(t *testing.T) {
	repo := t.TempDir()
	writeModelDir(t, repo, "A", `{"kind":"leaf"}`)
	writeModelDir(t, repo, "E", `{"kind":"ensemble","steps":[{"model_name":"A"}]}`)

	_, mgr := newTestServer(t, repo, manager.ManagerConfig{PollingEnabled: true})
	if _, err := mgr.PollAndUpdate(); err != nil {
		t.Fatalf("initial poll: %v", err)
	}

	// Touch A's config so its mtime/content changes, forcing "modified".
	time.Sleep(10 * time.Millisecond)
	writeModelDir(t, repo, "A", `{"kind":"leaf","version":2}`)

	if _, err := mgr.PollAndUpdate(); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	entries := mgr.RepositoryIndex(false)
	if len(entries) == 0 {
		t.Fatalf("expected entries after modification poll")
	}
}

// Scenario 4: unloading a leaf with unload_dependents=true removes it and
// every transitive dependent ensemble.
func TestScenario4UnloadWithDependentsRemovesBoth(t *testing.T) {
	repo := t.TempDir()
	writeModelDir(t, repo, "A", `{"kind":"leaf"}`)
	writeModelDir(t, repo, "E", `{"kind":"ensemble","steps":[{"model_name":"A"}]}`)

	srv, mgr := newTestServer(t, repo, manager.ManagerConfig{ExplicitControl: true})
	if _, err := mgr.LoadUnloadModel("A", types.Load, nil, false); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if _, err := mgr.LoadUnloadModel("E", types.Load, nil, false); err != nil {
		t.Fatalf("load E: %v", err)
	}

	resp, err := http.Post(srv.URL+"/v2/repository/models/A/unload", "application/json",
		jsonBody(t, types.ModelUnloadRequest{UnloadDependents: true}))
	if err != nil {
		t.Fatalf("unload request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unload status=%d", resp.StatusCode)
	}

	entries := mgr.RepositoryIndex(false)
	for _, e := range entries {
		if e.Name == "A" || e.Name == "E" {
			t.Fatalf("expected A and E gone after cascading unload, found %+v", e)
		}
	}
}

// Scenario 5: unloading a leaf without unload_dependents leaves the
// dependent ensemble in the graph, Invalid.
func TestScenario5UnloadWithoutDependentsInvalidatesDependent(t *testing.T) {
	repo := t.TempDir()
	writeModelDir(t, repo, "A", `{"kind":"leaf"}`)
	writeModelDir(t, repo, "E", `{"kind":"ensemble","steps":[{"model_name":"A"}]}`)

	_, mgr := newTestServer(t, repo, manager.ManagerConfig{ExplicitControl: true})
	if _, err := mgr.LoadUnloadModel("A", types.Load, nil, false); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if _, err := mgr.LoadUnloadModel("E", types.Load, nil, false); err != nil {
		t.Fatalf("load E: %v", err)
	}

	if _, err := mgr.LoadUnloadModel("A", types.Unload, nil, false); err != nil {
		t.Fatalf("unload A: %v", err)
	}

	entries := mgr.RepositoryIndex(false)
	var found bool
	for _, e := range entries {
		if e.Name == "E" {
			found = true
			if e.State != types.StateUnavailable || e.Reason == "" {
				t.Fatalf("expected E Invalid (StateUnavailable with a reason) after dangling unload, got %+v", e)
			}
		}
	}
	if !found {
		t.Fatalf("expected E still present in the index")
	}
}

// Scenario 6: the same model name in two repositories, namespacing off, is
// flagged UNAVAILABLE rather than loaded from either.
func TestScenario6DuplicateNameAcrossRepositoriesIsUnavailable(t *testing.T) {
	repoA := t.TempDir()
	repoB := t.TempDir()
	writeModelDir(t, repoA, "A", `{"kind":"leaf"}`)
	writeModelDir(t, repoB, "A", `{"kind":"leaf"}`)

	engine := lifecycle.NewMemoryEngine(0, 0)
	mgr := manager.New(manager.ManagerConfig{
		Repositories:   []string{repoA, repoB},
		PollingEnabled: true,
	}, engine, nil, zerolog.Nop())

	if _, err := mgr.PollAndUpdate(); err != nil {
		t.Fatalf("PollAndUpdate: %v", err)
	}
	entries := mgr.RepositoryIndex(false)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one flagged entry for the duplicate name, got %+v", entries)
	}
	if entries[0].State != types.StateUnavailable || entries[0].Version != -1 {
		t.Fatalf("unexpected duplicate-name entry: %+v", entries[0])
	}
}
