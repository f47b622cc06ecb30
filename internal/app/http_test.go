package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"claro/api/internal/ingest"
	"claro/api/internal/search"
	"claro/api/internal/store"
)

func newTestServer(t *testing.T, st dataStore, ing documentIngestor, se searcher) *httptest.Server {
	t.Helper()
	svc := newTestService(st, ing, se, &fakeComposer{})
	srv := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, &fakeSearcher{})

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
	var body map[string]any
	decodeJSON(t, resp, &body)
	if body["ok"] != true {
		t.Fatalf("body %v", body)
	}
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	st := &fakeStore{pingFn: func(context.Context) error { return errors.New("connection refused") }}
	srv := newTestServer(t, st, &fakeIngestor{}, &fakeSearcher{})

	resp, err := http.Get(srv.URL + "/api/ready")
	if err != nil {
		t.Fatalf("GET /api/ready: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
	var body map[string]any
	decodeJSON(t, resp, &body)
	if body["status"] != "not_ready" {
		t.Fatalf("body %v", body)
	}
}

func TestIngestEndpoint(t *testing.T) {
	ing := &fakeIngestor{
		ingestFn: func(_ context.Context, lawID, lawName string, effectiveDate time.Time, rawText string) (ingest.Result, error) {
			if lawID != "kc" || lawName != "Kodeks cywilny" {
				t.Errorf("law %q/%q", lawID, lawName)
			}
			return ingest.Result{DocumentID: "doc_1", Changed: 2, Unchanged: 1}, nil
		},
	}
	srv := newTestServer(t, &fakeStore{}, ing, &fakeSearcher{})

	resp := postJSON(t, srv.URL+"/api/ingest", `{"lawId":"kc","lawName":"Kodeks cywilny","effectiveDate":"2023-06-01","text":"Art. 1. X."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body ingest.Result
	decodeJSON(t, resp, &body)
	if body.Changed != 2 || body.Unchanged != 1 {
		t.Fatalf("body %+v", body)
	}
}

func TestIngestEndpointRejectsBadDate(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, &fakeSearcher{})

	resp := postJSON(t, srv.URL+"/api/ingest", `{"lawId":"kc","effectiveDate":"czerwiec","text":"Art. 1. X."}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", resp.StatusCode)
	}
	var body map[string]any
	decodeJSON(t, resp, &body)
	if body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("body %v", body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	se := &fakeSearcher{
		searchFn: func(_ context.Context, q search.Query) (search.Response, error) {
			if q.Text != "umowa najmu" {
				t.Errorf("query %q", q.Text)
			}
			if !q.AsOf.Equal(time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("asOf %v", q.AsOf)
			}
			return search.Response{
				Results: []search.Result{{LawID: "kc", ArticleNumber: "659", LaterAmendment: true}},
				Total:   1,
				Query:   q.Text,
			}, nil
		},
	}
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, se)

	resp := postJSON(t, srv.URL+"/api/search", `{"query":"umowa najmu","asOf":"2022-01-15"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body search.Response
	decodeJSON(t, resp, &body)
	if body.Total != 1 || !body.Results[0].LaterAmendment {
		t.Fatalf("body %+v", body)
	}
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	se := &fakeSearcher{
		searchFn: func(_ context.Context, q search.Query) (search.Response, error) {
			return search.Response{}, search.ErrEmptyQuery
		},
	}
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, se)

	resp := postJSON(t, srv.URL+"/api/search", `{"query":"  "}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", resp.StatusCode)
	}
}

func TestSearchEndpointReportsStoreOutageAs503(t *testing.T) {
	se := &fakeSearcher{
		searchFn: func(_ context.Context, _ search.Query) (search.Response, error) {
			return search.Response{}, fmt.Errorf("pgfts count: %w",
				&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
		},
	}
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, se)

	resp := postJSON(t, srv.URL+"/api/search", `{"query":"podatek"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	decodeJSON(t, resp, &body)
	if body.Code != "STORE_UNAVAILABLE" {
		t.Fatalf("code %q, want STORE_UNAVAILABLE", body.Code)
	}
}

func TestAskEndpoint(t *testing.T) {
	se := &fakeSearcher{
		searchFn: func(_ context.Context, _ search.Query) (search.Response, error) {
			return search.Response{Results: []search.Result{
				{LawID: "kc", LawName: "Kodeks cywilny", ArticleNumber: "415", Content: "Kto z winy swej..."},
			}}, nil
		},
	}
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, se)

	resp := postJSON(t, srv.URL+"/api/ask", `{"question":"kto odpowiada za szkodę?","asOf":"2023-06-01"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body AskResponse
	decodeJSON(t, resp, &body)
	if body.Answer == "" || len(body.Sources) != 1 {
		t.Fatalf("body %+v", body)
	}
}

func TestArticleHistoryRoute(t *testing.T) {
	st := &fakeStore{
		getLawFn: func(_ context.Context, lawID string) (store.Law, error) {
			return store.Law{ID: lawID, Name: "Kodeks cywilny"}, nil
		},
		listArticleVersionsFn: func(_ context.Context, lawID, articleNumber string) ([]store.ArticleVersion, error) {
			if lawID != "kc" || articleNumber != "86a" {
				t.Errorf("lookup %q/%q", lawID, articleNumber)
			}
			return []store.ArticleVersion{{ID: "ver_1", Content: "X", StartDate: time.Now()}}, nil
		},
	}
	srv := newTestServer(t, st, &fakeIngestor{}, &fakeSearcher{})

	resp, err := http.Get(srv.URL + "/api/laws/kc/articles/86a/versions")
	if err != nil {
		t.Fatalf("GET versions: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]any
	decodeJSON(t, resp, &body)
	if body["lawName"] != "Kodeks cywilny" {
		t.Fatalf("body %v", body)
	}
}

func TestArticleAsOfRouteMissingVersionIs404(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, &fakeSearcher{})

	resp, err := http.Get(srv.URL + "/api/laws/kc/articles/9999?asOf=2020-01-01")
	if err != nil {
		t.Fatalf("GET article: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeIngestor{}, &fakeSearcher{})

	resp, err := http.Get(srv.URL + "/api/unknown")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
