package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"beliefpad/api/internal/document"
)

type mapSource struct {
	docs map[string]document.Document
	err  error
}

func (m mapSource) Documents(context.Context) (map[string]document.Document, error) {
	return m.docs, m.err
}

func doc(title, subject, content string) document.Document {
	d := document.New()
	d.Title = title
	d.Subject = subject
	d.Sections = []document.Section{{ID: "1", Heading: "NP", Content: content}}
	return d
}

func testSource() mapSource {
	return mapSource{docs: map[string]document.Document{
		"session-form-Jane-2024-01-01T00:00:00.000Z": doc("Jane", "Flying", "I am unsafe in the air"),
		"session-form-Jane-2024-02-01T00:00:00.000Z": doc("Jane", "Driving", "I am unsafe on roads"),
		"session-form-Sam-2024-01-15T00:00:00.000Z":  doc("Sam", "Work", "I am not good enough"),
	}}
}

func TestNewFormRecord(t *testing.T) {
	d := doc("Jane", "Flying", "I am unsafe")
	d.ConnectedEmotionsSections = []document.Section{{ID: "2", Heading: "Fear", Content: "of falling"}, {ID: "3", Heading: "Joy", Content: " "}}
	record := NewFormRecord("session-form-Jane-2024-01-01T00:00:00.000Z", d)

	if len(record.ID) != 40 || strings.ContainsAny(record.ID, ":.") {
		t.Fatalf("expected hex id, got %q", record.ID)
	}
	if record.Content != "Fear: of falling\nNegative Program: I am unsafe" {
		t.Fatalf("unexpected content %q", record.Content)
	}
	if RecordID("a") == RecordID("b") {
		t.Fatal("expected distinct ids")
	}
}

func TestLocalSearch(t *testing.T) {
	local := NewLocal(testSource())
	tests := []struct {
		query string
		keys  []string
	}{
		{"unsafe", []string{"session-form-Jane-2024-02-01T00:00:00.000Z", "session-form-Jane-2024-01-01T00:00:00.000Z"}},
		{"JANE roads", []string{"session-form-Jane-2024-02-01T00:00:00.000Z"}},
		{"negative program", []string{"session-form-Sam-2024-01-15T00:00:00.000Z", "session-form-Jane-2024-02-01T00:00:00.000Z", "session-form-Jane-2024-01-01T00:00:00.000Z"}},
		{"nothing", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, total, err := local.Search(context.Background(), Query{Text: tt.query})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if total != len(tt.keys) || len(results) != len(tt.keys) {
				t.Fatalf("expected %d results, got %d (total %d)", len(tt.keys), len(results), total)
			}
			for i, key := range tt.keys {
				if results[i].Key != key {
					t.Errorf("result %d = %q, want %q", i, results[i].Key, key)
				}
			}
		})
	}
}

func TestLocalSearchSnippetAndPaging(t *testing.T) {
	local := NewLocal(testSource())
	results, total, err := local.Search(context.Background(), Query{Text: "unsafe", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 2 || len(results) != 1 {
		t.Fatalf("expected one of two results, got %d of %d", len(results), total)
	}
	if results[0].Snippet != "Negative Program: I am unsafe in the air" {
		t.Fatalf("unexpected snippet %q", results[0].Snippet)
	}

	results, total, _ = local.Search(context.Background(), Query{Text: "unsafe", Offset: 10})
	if total != 2 || len(results) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(results))
	}

	results, total, err = local.Search(context.Background(), Query{Text: "unsafe", Offset: -1})
	if err != nil || total != 2 || len(results) != 2 {
		t.Fatalf("expected a negative offset to start at the first match, got %d of %d err=%v", len(results), total, err)
	}
}

func TestServiceFallsBackToLocal(t *testing.T) {
	svc := NewService(nil, NewLocal(testSource()), nil)
	resp := svc.Search(context.Background(), Query{Text: "sam"})
	if resp.Engine != "local" || resp.Total != 1 || resp.Results[0].Title != "Sam" {
		t.Fatalf("unexpected response %+v", resp)
	}

	failing := NewService(nil, NewLocal(mapSource{err: errors.New("boom")}), nil)
	resp = failing.Search(context.Background(), Query{Text: "sam"})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %+v", resp)
	}

	none := NewService(nil, nil, nil)
	if resp := none.Search(context.Background(), Query{Text: "x"}); resp.Engine != "none" {
		t.Fatalf("unexpected engine %q", resp.Engine)
	}
}

// fakeMeili answers the handful of Meilisearch endpoints the client uses.
type fakeMeili struct {
	mu        sync.Mutex
	documents [][]FormRecord
	deleted   []string
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/health":
		_, _ = w.Write([]byte(`{"status":"available"}`))
	case r.URL.Path == "/multi-search":
		_, _ = w.Write([]byte(`{"results":[{"indexUid":"beliefpad_forms","hits":[{"id":"abc","key":"session-form-Jane-2024-01-01T00:00:00.000Z","title":"Jane","subject":"Flying","content":"Negative Program: I am unsafe","_formatted":{"title":"Jane","content":"Negative Program: I am <mark>unsafe</mark>"}}],"query":"unsafe","limit":20,"offset":0,"estimatedTotalHits":1,"processingTimeMs":1}]}`))
	default:
		if r.Method == http.MethodPost && r.URL.Path == "/indexes/beliefpad_forms/documents" {
			var records []FormRecord
			_ = json.NewDecoder(r.Body).Decode(&records)
			f.mu.Lock()
			f.documents = append(f.documents, records)
			f.mu.Unlock()
		}
		if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/indexes/beliefpad_forms/documents/") {
			f.mu.Lock()
			f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/indexes/beliefpad_forms/documents/"))
			f.mu.Unlock()
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"taskUid":1,"indexUid":"beliefpad_forms","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2024-01-01T00:00:00Z"}`))
	}
}

func (f *fakeMeili) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.documents), len(f.deleted)
}

func TestServiceUsesMeilisearchWhenHealthy(t *testing.T) {
	fake := &fakeMeili{}
	server := httptest.NewServer(fake)
	defer server.Close()

	m := NewMeili(server.URL, "", nil)
	defer m.Close()
	if !m.Healthy() {
		t.Fatal("expected meilisearch to be healthy")
	}

	svc := NewService(m, NewLocal(testSource()), nil)
	resp := svc.Search(context.Background(), Query{Text: "unsafe"})
	if resp.Engine != "meilisearch" || resp.Total != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[0].Snippet != "Negative Program: I am <mark>unsafe</mark>" {
		t.Fatalf("expected highlighted snippet, got %q", resp.Results[0].Snippet)
	}

	svc.FormSaved(context.Background(), "session-form-Jane-2024-01-01T00:00:00.000Z", doc("Jane", "Flying", "x"))
	svc.FormRemoved(context.Background(), "session-form-Jane-2024-01-01T00:00:00.000Z")
	svc.ReindexAll(context.Background(), testSource())

	deadline := time.Now().Add(2 * time.Second)
	for {
		added, deleted := fake.counts()
		if added >= 2 && deleted >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected index writes, got %d additions and %d deletions", added, deleted)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewMeiliUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	m := NewMeili(url, "", nil)
	defer m.Close()
	if m.Healthy() {
		t.Fatal("expected unreachable meilisearch to be unhealthy")
	}
	svc := NewService(m, NewLocal(testSource()), nil)
	if resp := svc.Search(context.Background(), Query{Text: "sam"}); resp.Engine != "local" {
		t.Fatalf("expected local fallback, got %q", resp.Engine)
	}
}
