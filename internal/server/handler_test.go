package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexgrid/synonymd/internal/synonym"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := New(synonym.New(), nil, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/synonyms", h.Add)
	mux.HandleFunc("GET /api/v1/synonyms", h.Get)
	mux.HandleFunc("GET /api/v1/synonyms/groups", h.Groups)
	mux.HandleFunc("DELETE /api/v1/synonyms", h.Clear)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postWords(t *testing.T, srv *httptest.Server, words ...string) *http.Response {
	t.Helper()
	body, err := json.Marshal(AddRequest{Words: words})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+"/api/v1/synonyms", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func getWord(t *testing.T, srv *httptest.Server, word string) (int, GetResponse) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/v1/synonyms?word=" + word)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out GetResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode, out
}

func TestAddAndGet(t *testing.T) {
	srv := newTestServer(t)

	resp := postWords(t, srv, "Large", "big")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST status = %d, want 204", resp.StatusCode)
	}

	status, got := getWord(t, srv, "large")
	if status != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", status)
	}
	if got.Word != "large" {
		t.Errorf("word = %q, want %q", got.Word, "large")
	}
	if len(got.Synonyms) != 1 || got.Synonyms[0] != "big" {
		t.Errorf("synonyms = %v, want [big]", got.Synonyms)
	}

	// Lookup is case-insensitive too.
	status, got = getWord(t, srv, "BIG")
	if status != http.StatusOK || len(got.Synonyms) != 1 || got.Synonyms[0] != "large" {
		t.Errorf("GET BIG = (%d, %v), want (200, [large])", status, got.Synonyms)
	}
}

func TestAddChain(t *testing.T) {
	srv := newTestServer(t)

	resp := postWords(t, srv, "big", "large", "huge", "enormous")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST status = %d, want 204", resp.StatusCode)
	}

	_, got := getWord(t, srv, "big")
	if len(got.Synonyms) != 3 {
		t.Fatalf("synonyms = %v, want three entries", got.Synonyms)
	}
}

func TestAddValidationFailures(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name  string
		words []string
	}{
		{"word with itself", []string{"a", "a"}},
		{"single word", []string{"a"}},
		{"no words", nil},
		{"duplicate in chain", []string{"a", "b", "A"}},
		{"blank word", []string{"a", " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postWords(t, srv, tc.words...)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Error("400 response has no error message")
			}
		})
	}

	// Nothing above may have mutated the dictionary.
	status, got := getWord(t, srv, "a")
	if status != http.StatusOK || len(got.Synonyms) != 0 {
		t.Fatalf("GET a = (%d, %v), want (200, empty)", status, got.Synonyms)
	}
}

func TestAddMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/synonyms", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetRequiresWord(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/synonyms")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/synonyms?word=%20%20")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank word status = %d, want 400", resp.StatusCode)
	}
}

func TestGetUnknownWordIsEmptyNotError(t *testing.T) {
	srv := newTestServer(t)

	status, got := getWord(t, srv, "nonesuch")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got.Synonyms == nil {
		t.Fatal("synonyms is null, want []")
	}
	if len(got.Synonyms) != 0 {
		t.Fatalf("synonyms = %v, want empty", got.Synonyms)
	}
}

func TestGroups(t *testing.T) {
	srv := newTestServer(t)

	postWords(t, srv, "a", "b").Body.Close()
	postWords(t, srv, "c", "d").Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/synonyms/groups")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out GroupsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 || len(out.Groups) != 2 {
		t.Fatalf("groups = %v (count %d), want 2 groups", out.Groups, out.Count)
	}
	for _, g := range out.Groups {
		if len(g) != 2 {
			t.Errorf("group %v has %d members, want 2", g, len(g))
		}
	}
}

func TestClear(t *testing.T) {
	srv := newTestServer(t)

	postWords(t, srv, "a", "b").Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/synonyms", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", resp.StatusCode)
	}

	status, got := getWord(t, srv, "a")
	if status != http.StatusOK || len(got.Synonyms) != 0 {
		t.Fatalf("GET after clear = (%d, %v), want (200, empty)", status, got.Synonyms)
	}
}
