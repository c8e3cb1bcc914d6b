package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"beliefpad/api/internal/email"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/history"
	"beliefpad/api/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeDelivery struct {
	requests []email.SendRequest
}

func (f *fakeDelivery) Send(_ context.Context, req email.SendRequest) (string, error) {
	f.requests = append(f.requests, req)
	return "<sent@test>", nil
}

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	catalogue := store.NewCatalogue(store.NewMemoryKV(0), nil, store.DefaultQuota)
	catalogue.SetClock(func() time.Time { return fixedNow })
	return &Env{
		Catalogue: catalogue,
		Exporter:  export.NewService(nil),
		Now:       func() time.Time { return fixedNow },
	}
}

func run(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(env)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, env *Env, args ...string) string {
	t.Helper()
	out, err := run(t, env, args...)
	if err != nil {
		t.Fatalf("beliefpad %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

const janeKey = "session-form-Jane-Doe-2024-05-01T10:00:00.000Z"

func saveJane(t *testing.T, env *Env) {
	t.Helper()
	mustRun(t, env, "new", "--title", "Jane Doe", "--subject", "Public speaking", "--section", "NP=I will fail", "--emotion", "Anger")
}

func TestNewAndShow(t *testing.T) {
	env := newTestEnv(t)
	out := mustRun(t, env, "new", "--title", "Jane Doe", "--subject", "Public speaking", "--section", "NP=I will fail")
	if !strings.Contains(out, "Saved "+janeKey) {
		t.Fatalf("unexpected output %q", out)
	}

	out = mustRun(t, env, "show", janeKey)
	if !strings.Contains(out, "Belief Code Session for Jane Doe") || !strings.Contains(out, "I will fail") {
		t.Fatalf("unexpected show output %q", out)
	}

	out = mustRun(t, env, "show", "--json", janeKey)
	if !strings.Contains(out, `"title":"Jane Doe"`) {
		t.Fatalf("expected stored JSON, got %q", out)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "new", "--title", "Jane", "--section", "XYZ=nope"); err == nil || !strings.Contains(err.Error(), "unknown primary heading") {
		t.Fatalf("expected unknown heading error, got %v", err)
	}
	if _, err := run(t, env, "new", "--title", "  "); err == nil {
		t.Fatalf("expected blank title to fail")
	}
	if _, err := run(t, env, "new"); err == nil {
		t.Fatalf("expected missing --title to fail")
	}
}

func TestListMatch(t *testing.T) {
	env := newTestEnv(t)
	if out := mustRun(t, env, "list"); !strings.Contains(out, "No saved forms.") {
		t.Fatalf("expected empty list, got %q", out)
	}
	saveJane(t, env)
	mustRun(t, env, "new", "--title", "John Smith")

	out := mustRun(t, env, "list")
	if !strings.Contains(out, "Jane Doe") || !strings.Contains(out, "John Smith") {
		t.Fatalf("expected both forms, got %q", out)
	}
	out = mustRun(t, env, "list", "--match", "JANE*")
	if !strings.Contains(out, "Jane Doe") || strings.Contains(out, "John Smith") {
		t.Fatalf("expected only Jane, got %q", out)
	}
}

func TestExportWritesFile(t *testing.T) {
	env := newTestEnv(t)
	saveJane(t, env)
	dir := t.TempDir()

	out := mustRun(t, env, "export", janeKey, "--out", dir)
	path := filepath.Join(dir, "Belief Code for Jane Doe - Public speaking.pdf")
	if !strings.Contains(out, path) {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf at %s: %v", path, err)
	}

	mustRun(t, env, "export", janeKey, "--format", "json", "--out", dir)
	if _, err := os.Stat(filepath.Join(dir, janeKey+".json")); err != nil {
		t.Fatalf("expected json export: %v", err)
	}

	if _, err := run(t, env, "export", janeKey, "--format", "rtf"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestImportFromFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "john.json")
	if err := os.WriteFile(path, []byte(`{"title":"John","connectedEmotionsSections":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := mustRun(t, env, "import", path)
	if !strings.Contains(out, "Imported John as session-form-John-") {
		t.Fatalf("unexpected output %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(bad, []byte(`{"title":" ","sections":[]}`), 0o644)
	if _, err := run(t, env, "import", bad); err == nil {
		t.Fatalf("expected blank title import to fail")
	}
}

func TestDeleteAndClear(t *testing.T) {
	env := newTestEnv(t)
	saveJane(t, env)

	mustRun(t, env, "delete", janeKey)
	if _, err := run(t, env, "delete", janeKey); err == nil {
		t.Fatalf("expected second delete to fail")
	}

	saveJane(t, env)
	if _, err := run(t, env, "clear"); err == nil {
		t.Fatalf("expected clear without --yes to fail")
	}
	out := mustRun(t, env, "clear", "--yes")
	if !strings.Contains(out, "Cleared 1 saved forms") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExportAllAndCapacity(t *testing.T) {
	env := newTestEnv(t)
	saveJane(t, env)
	dir := t.TempDir()

	out := mustRun(t, env, "export-all", "--out", dir)
	if !strings.Contains(out, "Wrote 1 forms") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "all_saved_forms.zip")); err != nil {
		t.Fatalf("expected archive: %v", err)
	}

	out = mustRun(t, env, "capacity")
	if !strings.Contains(out, "of 5242880 bytes") {
		t.Fatalf("unexpected capacity output %q", out)
	}
}

func TestCatalogCommand(t *testing.T) {
	out := mustRun(t, newTestEnv(t), "catalog")
	if !strings.Contains(out, "Negative Program") || !strings.Contains(out, "ctrl+n NP") {
		t.Fatalf("unexpected catalog output %q", out)
	}
	out = mustRun(t, newTestEnv(t), "catalog", "--emotions")
	if !strings.Contains(out, "Anger") || strings.Contains(out, "Shortcuts") {
		t.Fatalf("unexpected emotions output %q", out)
	}
}

func TestMailtoAndSend(t *testing.T) {
	env := newTestEnv(t)
	delivery := &fakeDelivery{}
	env.Delivery = delivery
	env.PIN = "1234"
	saveJane(t, env)

	out := mustRun(t, env, "mailto", janeKey, "--to", "client@example.com")
	if !strings.HasPrefix(out, "mailto:client@example.com?subject=Belief%20Code%20Session%20for%20Jane%20Doe") {
		t.Fatalf("unexpected link %q", out)
	}
	if _, err := run(t, env, "mailto", janeKey); err == nil {
		t.Fatalf("expected missing recipient to fail")
	}

	out = mustRun(t, env, "send", janeKey, "--to", "client@example.com", "--message", "Notes")
	if !strings.Contains(out, "<sent@test>") {
		t.Fatalf("unexpected output %q", out)
	}
	if req := delivery.requests[0]; req.PIN != "1234" || req.EmailMessage != "Notes" || req.Document.Title != "Jane Doe" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestSearchFallsBackToLocalScan(t *testing.T) {
	env := newTestEnv(t)
	saveJane(t, env)
	out := mustRun(t, env, "search", "will", "fail")
	if !strings.Contains(out, "Jane Doe") || !strings.Contains(out, "(local)") {
		t.Fatalf("unexpected search output %q", out)
	}
	if out := mustRun(t, env, "search", "nothing-like-this"); !strings.Contains(out, "No matches.") {
		t.Fatalf("expected no matches, got %q", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := run(t, env, "history", janeKey); err != errHistoryDisabled {
		t.Fatalf("expected errHistoryDisabled, got %v", err)
	}

	env.History = history.New(t.TempDir(), "tester", nil)
	env.Catalogue.AddObserver(env.History)
	saveJane(t, env)

	out := mustRun(t, env, "history", janeKey)
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Fatalf("expected one revision, got %q", out)
	}
	hash := strings.Fields(out)[0]
	commits, err := env.History.Log(janeKey, 1)
	if err != nil || !strings.HasPrefix(commits[0].Hash, hash) {
		t.Fatalf("unexpected log %v err=%v", commits, err)
	}

	out = mustRun(t, env, "history", janeKey, "--show", commits[0].Hash)
	if !strings.Contains(out, "I will fail") {
		t.Fatalf("unexpected revision output %q", out)
	}
}

func TestBackupRequiresConfiguration(t *testing.T) {
	if _, err := run(t, newTestEnv(t), "backup"); err != errBackupDisabled {
		t.Fatalf("expected errBackupDisabled, got %v", err)
	}
}

func TestSafeFilename(t *testing.T) {
	if got := safeFilename("Belief Code for A/B - C\\D.pdf"); got != "Belief Code for A_B - C_D.pdf" {
		t.Fatalf("unexpected name %q", got)
	}
}
