package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eduforge/eduforge/internal/llm"
	"github.com/eduforge/eduforge/internal/storage"
)

type fakeStore struct {
	records  map[string]storage.ContentRecord
	feedback map[string][]storage.Feedback
	runs     []storage.Run
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[string]storage.ContentRecord{},
		feedback: map[string][]storage.Feedback{},
	}
}

func (s *fakeStore) GetContent(hash string) (storage.ContentRecord, error) {
	rec, ok := s.records[hash]
	if !ok {
		return storage.ContentRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (s *fakeStore) ListContent(limit, offset int) ([]storage.ContentRecord, error) {
	var out []storage.ContentRecord
	for _, rec := range s.records {
		out = append(out, rec)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) DeleteContent(hash string) error {
	if _, ok := s.records[hash]; !ok {
		return storage.ErrNotFound
	}
	delete(s.records, hash)
	s.deleted = append(s.deleted, hash)
	return nil
}

func (s *fakeStore) CountContent() (int, error) { return len(s.records), nil }

func (s *fakeStore) SaveFeedback(f storage.Feedback) error {
	if _, ok := s.records[f.ContentHash]; !ok {
		return storage.ErrNotFound
	}
	s.feedback[f.ContentHash] = append(s.feedback[f.ContentHash], f)
	return nil
}

func (s *fakeStore) ListFeedback(contentHash string) ([]storage.Feedback, error) {
	return s.feedback[contentHash], nil
}

func (s *fakeStore) ListRuns(limit int) ([]storage.Run, error) {
	if len(s.runs) > limit {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (c *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

const testToken = "test-token"

func newTestHandler(store *fakeStore, completer *fakeCompleter) http.Handler {
	return NewHandler(Deps{
		Store: store,
		LLM:   completer,
		Token: testToken,
		Model: "gpt-4o-mini",
	})
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleRecord(hash string) storage.ContentRecord {
	return storage.ContentRecord{
		ContentHash:   hash,
		Content:       "Generated lesson body",
		UserMessage:   "Generate a beginner guide about Web Development using JavaScript and React for visual learners",
		Topics:        []string{"Web Development"},
		Languages:     []string{"JavaScript"},
		Frameworks:    []string{"React"},
		Level:         "beginner",
		LearningStyle: "visual",
		Model:         "gpt-4o-mini",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestHealthIsOpen(t *testing.T) {
	store := newFakeStore()
	store.records["aaa"] = sampleRecord("aaa")
	h := newTestHandler(store, &fakeCompleter{})

	w := doRequest(t, h, "GET", "/health", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["content_records"] != float64(1) {
		t.Errorf("content_records = %v, want 1", body["content_records"])
	}
}

func TestMissingTokenRejected(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeCompleter{})

	for _, path := range []string{"/content", "/runs"} {
		w := doRequest(t, h, "GET", path, nil, false)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, w.Code)
		}
	}
}

func TestWrongTokenRejected(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeCompleter{})

	req := httptest.NewRequest("GET", "/content", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGetContent(t *testing.T) {
	store := newFakeStore()
	store.records["abc"] = sampleRecord("abc")
	h := newTestHandler(store, &fakeCompleter{})

	w := doRequest(t, h, "GET", "/content/abc", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp contentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "Generated lesson body" {
		t.Errorf("content = %q, want body included on single get", resp.Content)
	}
	if resp.Level != "beginner" {
		t.Errorf("level = %q, want beginner", resp.Level)
	}
}

func TestGetContent_NotFound(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeCompleter{})

	w := doRequest(t, h, "GET", "/content/nope", nil, true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListContent_OmitsBody(t *testing.T) {
	store := newFakeStore()
	store.records["abc"] = sampleRecord("abc")
	h := newTestHandler(store, &fakeCompleter{})

	w := doRequest(t, h, "GET", "/content", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "Generated lesson body") {
		t.Error("list response includes content body, want metadata only")
	}
}

func TestDeleteContent(t *testing.T) {
	store := newFakeStore()
	store.records["abc"] = sampleRecord("abc")
	h := newTestHandler(store, &fakeCompleter{})

	w := doRequest(t, h, "DELETE", "/content/abc", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "abc" {
		t.Errorf("deleted = %v, want [abc]", store.deleted)
	}

	w = doRequest(t, h, "DELETE", "/content/abc", nil, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}

func TestPostFeedback(t *testing.T) {
	store := newFakeStore()
	store.records["abc"] = sampleRecord("abc")
	h := newTestHandler(store, &fakeCompleter{})

	w := doRequest(t, h, "POST", "/content/abc/feedback", map[string]any{"rating": 5, "notes": "great"}, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	saved := store.feedback["abc"]
	if len(saved) != 1 {
		t.Fatalf("feedback count = %d, want 1", len(saved))
	}
	if saved[0].Rating != 5 || saved[0].Notes != "great" {
		t.Errorf("saved feedback = %+v", saved[0])
	}
	if saved[0].ID == "" {
		t.Error("feedback ID not assigned")
	}
}

func TestPostFeedback_RatingOutOfRange(t *testing.T) {
	store := newFakeStore()
	store.records["abc"] = sampleRecord("abc")
	h := newTestHandler(store, &fakeCompleter{})

	for _, rating := range []int{0, 6, -1} {
		w := doRequest(t, h, "POST", "/content/abc/feedback", map[string]any{"rating": rating}, true)
		if w.Code != http.StatusBadRequest {
			t.Errorf("rating %d: status = %d, want 400", rating, w.Code)
		}
	}
	if len(store.feedback["abc"]) != 0 {
		t.Error("invalid ratings must not be saved")
	}
}

func TestPostFeedback_UnknownContent(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeCompleter{})

	w := doRequest(t, h, "POST", "/content/nope/feedback", map[string]any{"rating": 3}, true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	store := newFakeStore()
	store.runs = []storage.Run{{ID: "run-1", Model: "gpt-4o-mini", Generated: 10}}
	h := newTestHandler(store, &fakeCompleter{})

	w := doRequest(t, h, "GET", "/runs", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var runs []storage.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestReflect(t *testing.T) {
	completer := &fakeCompleter{response: "Improved lesson"}
	h := newTestHandler(newFakeStore(), completer)

	body := map[string]any{
		"topics":                []string{"Web Development"},
		"programming_languages": []string{"JavaScript"},
		"frameworks":            []string{"React"},
		"steps":                 1,
	}
	w := doRequest(t, h, "POST", "/reflect", body, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp reflectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "Improved lesson" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.StepsCompleted != 1 {
		t.Errorf("steps_completed = %d, want 1", resp.StepsCompleted)
	}
	if resp.State != "done" {
		t.Errorf("state = %q, want done", resp.State)
	}
	// One generation call plus one reflection pass.
	if completer.calls != 2 {
		t.Errorf("completer calls = %d, want 2", completer.calls)
	}
}

func TestReflect_NegativeSteps(t *testing.T) {
	h := newTestHandler(newFakeStore(), &fakeCompleter{})

	w := doRequest(t, h, "POST", "/reflect", map[string]any{"steps": -1}, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestReflect_CompletionFailure(t *testing.T) {
	completer := &fakeCompleter{response: ""}
	h := newTestHandler(newFakeStore(), completer)

	w := doRequest(t, h, "POST", "/reflect", map[string]any{"steps": 0}, true)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", w.Code, w.Body.String())
	}
}
