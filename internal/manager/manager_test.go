package manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"modelrepo/pkg/types"
)

func writeModel(t *testing.T, repo, name, configJSON string) {
	t.Helper()
	dir := filepath.Join(repo, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if configJSON == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestPollAndUpdateLoadsIndependentLeaf(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "preprocess", "")

	m := New(ManagerConfig{Repositories: []string{repo}, PollingEnabled: true}, nil, nil, testLogger())
	res, err := m.PollAndUpdate()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !res.AllPolled {
		t.Fatalf("expected all_polled true, got %+v", res)
	}
	v, ok := res.Statuses["preprocess"]
	if !ok || !v.OK {
		t.Fatalf("expected preprocess OK, got %+v", res.Statuses)
	}

	states, err := m.VersionStates("preprocess")
	if err != nil {
		t.Fatalf("version states: %v", err)
	}
	if len(states) == 0 {
		t.Fatalf("expected preprocess to have been loaded")
	}
}

func TestPollAndUpdateConnectsEnsembleToUpstream(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "preprocess", "")
	writeModel(t, repo, "ensemble", `{"steps":[{"model_name":"preprocess"}]}`)

	m := New(ManagerConfig{Repositories: []string{repo}, PollingEnabled: true}, nil, nil, testLogger())
	res, err := m.PollAndUpdate()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if v := res.Statuses["ensemble"]; !v.OK {
		t.Fatalf("expected ensemble OK once its dependency is present, got %+v", v)
	}
}

func TestPollAndUpdateMarksEnsembleInvalidOnMissingDependency(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "ensemble", `{"steps":[{"model_name":"missing"}]}`)

	m := New(ManagerConfig{Repositories: []string{repo}, PollingEnabled: true}, nil, nil, testLogger())
	res, err := m.PollAndUpdate()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	v := res.Statuses["ensemble"]
	if v.OK {
		t.Fatalf("expected ensemble invalid without its dependency")
	}
	if v.Reason == "" {
		t.Fatalf("expected a reason for the invalid ensemble")
	}
}

func TestPollAndUpdateRejectedInExplicitMode(t *testing.T) {
	m := New(ManagerConfig{ExplicitControl: true}, nil, nil, testLogger())
	if _, err := m.PollAndUpdate(); !IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
}

func TestLoadUnloadModelExplicitLoad(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "onnx-model", "")

	m := New(ManagerConfig{Repositories: []string{repo}, ExplicitControl: true}, nil, nil, testLogger())
	v, err := m.LoadUnloadModel("onnx-model", types.Load, nil, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !v.OK {
		t.Fatalf("expected load OK, got %+v", v)
	}
}

func TestLoadUnloadModelExplicitLoadMissingIsNotFound(t *testing.T) {
	m := New(ManagerConfig{ExplicitControl: true}, nil, nil, testLogger())
	if _, err := m.LoadUnloadModel("nope", types.Load, nil, false); !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestLoadUnloadModelUnloadWithoutDependentsLeavesEnsembleInvalid(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "preprocess", "")
	writeModel(t, repo, "ensemble", `{"steps":[{"model_name":"preprocess"}]}`)

	m := New(ManagerConfig{Repositories: []string{repo}, ExplicitControl: true}, nil, nil, testLogger())
	if _, err := m.LoadUnloadModel("preprocess", types.Load, nil, false); err != nil {
		t.Fatalf("load preprocess: %v", err)
	}
	if _, err := m.LoadUnloadModel("ensemble", types.Load, nil, false); err != nil {
		t.Fatalf("load ensemble: %v", err)
	}

	if _, err := m.LoadUnloadModel("preprocess", types.Unload, nil, false); err != nil {
		t.Fatalf("unload preprocess: %v", err)
	}

	m.mu.Lock()
	n, ok := m.graph.Node(types.ModelIdentifier{Name: "ensemble"})
	m.mu.Unlock()
	if !ok {
		t.Fatalf("expected ensemble node to remain in the graph")
	}
	if n.Status.OK {
		t.Fatalf("expected ensemble invalid after its dependency unloaded")
	}
}

func TestLoadUnloadModelUnloadWithDependentsRemovesBoth(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "preprocess", "")
	writeModel(t, repo, "ensemble", `{"steps":[{"model_name":"preprocess"}]}`)

	m := New(ManagerConfig{Repositories: []string{repo}, ExplicitControl: true}, nil, nil, testLogger())
	if _, err := m.LoadUnloadModel("preprocess", types.Load, nil, false); err != nil {
		t.Fatalf("load preprocess: %v", err)
	}
	if _, err := m.LoadUnloadModel("ensemble", types.Load, nil, false); err != nil {
		t.Fatalf("load ensemble: %v", err)
	}

	if _, err := m.LoadUnloadModel("preprocess", types.Unload, nil, true); err != nil {
		t.Fatalf("unload preprocess: %v", err)
	}

	m.mu.Lock()
	_, ensembleStillPresent := m.graph.Node(types.ModelIdentifier{Name: "ensemble"})
	m.mu.Unlock()
	if ensembleStillPresent {
		t.Fatalf("expected ensemble removed when unloadDependents is set")
	}
}

func TestUnregisterModelRepositoryUnloadsItsModels(t *testing.T) {
	repo := t.TempDir()
	writeModel(t, repo, "leaf", "")

	m := New(ManagerConfig{Repositories: []string{repo}, PollingEnabled: true}, nil, nil, testLogger())
	if _, err := m.PollAndUpdate(); err != nil {
		t.Fatalf("poll: %v", err)
	}

	if err := m.UnregisterModelRepository(repo); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	m.mu.Lock()
	n := m.graph.Len()
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected graph emptied after unregistering its only repository, got %d nodes", n)
	}
}

func TestRegisterModelRepositoryRejectsDuplicate(t *testing.T) {
	repo := t.TempDir()
	m := New(ManagerConfig{Repositories: []string{repo}}, nil, nil, testLogger())
	if err := m.RegisterModelRepository(repo, nil); !IsAlreadyExists(err) {
		t.Fatalf("expected already-exists error, got %v", err)
	}
}
