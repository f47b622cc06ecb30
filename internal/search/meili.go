package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxVersions = "claro_article_versions"

// Meili implements Searcher and Indexer via Meilisearch. It mirrors all
// article versions with their validity interval as filterable timestamps.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the version index.
// The caller should proceed without it if the instance never comes up.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxVersions,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxVersions, err)
	}

	index := m.client.Index(idxVersions)
	filterable := []interface{}{"lawId", "startTs", "endTs"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxVersions, err)
	}
	searchable := []string{"content", "articleNumber"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxVersions, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search filters the version index to the interval containing q.AsOf and
// queries the text. A closed matching version means a successor started
// after AsOf, so LaterAmendment derives directly from the stored EndTs.
func (m *Meili) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, ErrEmptyQuery
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	asOfTs := asOf.Unix()

	resp, err := m.client.Index(idxVersions).SearchWithContext(ctx, q.Text, &meili.SearchRequest{
		Limit:            limit,
		Filter:           fmt.Sprintf("startTs <= %d AND endTs > %d", asOfTs, asOfTs),
		ShowRankingScore: true,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	sortResults(results)
	return results, int(resp.EstimatedTotalHits), nil
}

// sortResults orders hits the same way the Postgres backend does: score
// descending, then newer versions first, then law and article ascending.
// Meilisearch's native ranking already approximates this but does not
// promise a stable order for equal scores.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.VersionStart.Equal(b.VersionStart) {
			return a.VersionStart.After(b.VersionStart)
		}
		if a.LawID != b.LawID {
			return a.LawID < b.LawID
		}
		return a.ArticleNumber < b.ArticleNumber
	})
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		LawID:         decodeString(hit, "lawId"),
		LawName:       decodeString(hit, "lawName"),
		ArticleNumber: decodeString(hit, "articleNumber"),
		Content:       decodeString(hit, "content"),
		Score:         decodeFloat(hit, "_rankingScore"),
	}
	startTs := decodeInt(hit, "startTs")
	if startTs > 0 {
		r.VersionStart = time.Unix(startTs, 0).UTC()
	}
	r.LaterAmendment = decodeInt(hit, "endTs") != OpenEndTs
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFloat(hit meili.Hit, key string) float64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	return 0
}

func decodeInt(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return 0
}

// IndexVersion adds or updates one version record in the search index.
func (m *Meili) IndexVersion(v VersionRecord) error {
	_, err := m.client.Index(idxVersions).AddDocuments([]VersionRecord{v}, nil)
	return err
}

// IndexVersions bulk-indexes version records.
func (m *Meili) IndexVersions(versions []VersionRecord) error {
	if len(versions) == 0 {
		return nil
	}
	_, err := m.client.Index(idxVersions).AddDocuments(versions, nil)
	return err
}
