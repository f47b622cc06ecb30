package search

import (
	"encoding/json"
	"testing"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

func TestHitToResultDecodesFields(t *testing.T) {
	hit := meili.Hit{
		"lawId":         json.RawMessage(`"vat"`),
		"lawName":       json.RawMessage(`"Ustawa o VAT"`),
		"articleNumber": json.RawMessage(`"86"`),
		"content":       json.RawMessage(`"Podatek naliczony podlega odliczeniu."`),
		"startTs":       json.RawMessage(`1577836800`),
		"endTs":         json.RawMessage(`1685577600`),
		"_rankingScore": json.RawMessage(`0.87`),
	}

	r := hitToResult(hit)
	if r.LawID != "vat" || r.ArticleNumber != "86" {
		t.Fatalf("unexpected identity: %+v", r)
	}
	if r.Score != 0.87 {
		t.Fatalf("expected score 0.87, got %v", r.Score)
	}
	want := time.Unix(1577836800, 0).UTC()
	if !r.VersionStart.Equal(want) {
		t.Fatalf("expected version start %v, got %v", want, r.VersionStart)
	}
	if !r.LaterAmendment {
		t.Fatal("a closed version means a later amendment exists")
	}
}

func TestHitToResultOpenVersionHasNoLaterAmendment(t *testing.T) {
	hit := meili.Hit{
		"lawId":   json.RawMessage(`"vat"`),
		"startTs": json.RawMessage(`1685577600`),
		"endTs":   json.RawMessage(`253402300799`),
	}
	if r := hitToResult(hit); r.LaterAmendment {
		t.Fatal("open version must not be flagged as amended")
	}
}

func TestSortResultsOrdering(t *testing.T) {
	newer := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	results := []Result{
		{LawID: "vat", ArticleNumber: "99", Score: 0.5, VersionStart: older},
		{LawID: "vat", ArticleNumber: "86", Score: 0.9, VersionStart: older},
		{LawID: "kc", ArticleNumber: "1", Score: 0.5, VersionStart: newer},
		{LawID: "vat", ArticleNumber: "12", Score: 0.5, VersionStart: newer},
		{LawID: "kc", ArticleNumber: "2", Score: 0.5, VersionStart: newer},
	}
	sortResults(results)

	want := []struct {
		lawID, article string
	}{
		{"vat", "86"}, // highest score first
		{"kc", "1"},   // then newer versions, law and article ascending
		{"kc", "2"},
		{"vat", "12"},
		{"vat", "99"},
	}
	for i, w := range want {
		if results[i].LawID != w.lawID || results[i].ArticleNumber != w.article {
			t.Fatalf("position %d: expected %s/%s, got %s/%s",
				i, w.lawID, w.article, results[i].LawID, results[i].ArticleNumber)
		}
	}
}
