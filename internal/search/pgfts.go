package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PgFTS implements Searcher over the article_versions.fts tsvector. It is
// the authoritative backend: the interval predicate makes historical as-of
// queries exact, and the partial open-version index keeps at most one
// candidate version per article in scope.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches query terms against versions whose [start, end) interval
// contains q.AsOf. Rank by ts_rank, ties broken by most recent version
// start, then law and article number for determinism.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, ErrEmptyQuery
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	const where = `
		av.fts @@ plainto_tsquery('simple', $1)
		AND av.version_start_date <= $2
		AND (av.version_end_date IS NULL OR av.version_end_date > $2)`

	var total int
	countSQL := `
		SELECT count(*)
		FROM article_versions av
		WHERE ` + where
	if err := p.db.QueryRowContext(ctx, countSQL, q.Text, asOf).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT l.law_id, l.law_name, a.article_number, av.content, av.version_start_date,
			ts_rank(av.fts, plainto_tsquery('simple', $1)) AS rank,
			EXISTS(
				SELECT 1 FROM article_versions later
				WHERE later.article_id = av.article_id AND later.version_start_date > $2
			) AS later_amendment
		FROM article_versions av
		JOIN articles a ON a.id = av.article_id
		JOIN laws l ON l.law_id = a.law_id
		WHERE %s
		ORDER BY rank DESC, av.version_start_date DESC, l.law_id ASC, a.article_number ASC
		LIMIT %d`, where, limit)

	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text, asOf)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.LawID, &r.LawName, &r.ArticleNumber, &r.Content, &r.VersionStart, &r.Score, &r.LaterAmendment); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllVersions returns every article version for full reindexing of the
// secondary index.
func (p *PgFTS) LoadAllVersions(ctx context.Context) ([]VersionRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT av.id, l.law_id, l.law_name, a.article_number, av.content,
			av.version_start_date, av.version_end_date
		FROM article_versions av
		JOIN articles a ON a.id = av.article_id
		JOIN laws l ON l.law_id = a.law_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}
	defer rows.Close()

	records := make([]VersionRecord, 0)
	for rows.Next() {
		var r VersionRecord
		var start time.Time
		var end *time.Time
		if err := rows.Scan(&r.ID, &r.LawID, &r.LawName, &r.ArticleNumber, &r.Content, &start, &end); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		r.StartTs = start.Unix()
		r.EndTs = OpenEndTs
		if end != nil {
			r.EndTs = end.Unix()
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return records, nil
}
