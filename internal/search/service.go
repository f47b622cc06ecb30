package search

import (
	"context"
	"log"
	"strings"
	"time"
)

// Service is the facade that tries Meilisearch first and falls back to the
// authoritative PG FTS backend.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search validates the query, tries Meilisearch if healthy, and otherwise
// runs the Postgres backend. A blank query fails with ErrEmptyQuery before
// either backend is touched; no matches is an empty result set, not an error.
func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	if strings.TrimSpace(q.Text) == "" {
		return Response{}, ErrEmptyQuery
	}
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
		q.AsOf = asOf
	}

	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, AsOf: asOf.Format("2006-01-02")}, nil
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, AsOf: asOf.Format("2006-01-02")}, nil
}

// IndexVersion mirrors a version into Meilisearch (fire-and-forget).
func (s *Service) IndexVersion(v VersionRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexVersion(v); err != nil {
			log.Printf("search: index version %s: %v", v.ID, err)
		}
	}()
}

// IndexVersions mirrors a batch of versions into Meilisearch (fire-and-forget).
func (s *Service) IndexVersions(versions []VersionRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(versions) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexVersions(versions); err != nil {
			log.Printf("search: index %d versions: %v", len(versions), err)
		}
	}()
}

// ReindexAllFromPG mirrors every stored version into Meilisearch. Called
// during bootstrap when Meilisearch is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	versions, err := s.pgfts.LoadAllVersions(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if len(versions) == 0 {
		return
	}
	if err := s.meili.IndexVersions(versions); err != nil {
		log.Printf("search: reindex versions: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
