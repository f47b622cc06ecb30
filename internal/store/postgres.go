package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"claro/api/internal/util"
)

// ErrOutOfOrderVersion is returned when an ingested effective date does not
// come strictly after the start date of the article's open version. Ingestion
// must be processed in non-decreasing effective-date order per article;
// back-dated corrections are rejected rather than silently reordering history.
var ErrOutOfOrderVersion = errors.New("effective date precedes open version")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) EnsureLaw(ctx context.Context, lawID, lawName string) (Law, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO laws (law_id, law_name)
		VALUES ($1, $2)
		ON CONFLICT (law_id) DO NOTHING
	`, lawID, lawName); err != nil {
		return Law{}, fmt.Errorf("ensure law: %w", err)
	}

	var law Law
	err := s.db.QueryRowContext(ctx, `
		SELECT law_id, law_name, created_at FROM laws WHERE law_id=$1
	`, lawID).Scan(&law.ID, &law.Name, &law.CreatedAt)
	if err != nil {
		return Law{}, fmt.Errorf("lookup law: %w", err)
	}
	return law, nil
}

func (s *PostgresStore) GetLaw(ctx context.Context, lawID string) (Law, error) {
	var law Law
	err := s.db.QueryRowContext(ctx, `
		SELECT law_id, law_name, created_at FROM laws WHERE law_id=$1
	`, lawID).Scan(&law.ID, &law.Name, &law.CreatedAt)
	if err != nil {
		return Law{}, err
	}
	return law, nil
}

func (s *PostgresStore) ListLaws(ctx context.Context) ([]Law, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.law_id, l.law_name, l.created_at,
			(SELECT COUNT(*) FROM articles a WHERE a.law_id = l.law_id) AS article_count
		FROM laws l
		ORDER BY l.law_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list laws: %w", err)
	}
	defer rows.Close()

	items := make([]Law, 0)
	for rows.Next() {
		var item Law
		if err := rows.Scan(&item.ID, &item.Name, &item.CreatedAt, &item.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan law: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate laws: %w", err)
	}
	return items, nil
}

// RecordVersion applies newly ingested article text inside one transaction:
// resolve-or-create the article, inspect its open version (locked against
// concurrent writers), then either no-op, reject, or close-and-reopen. The
// partial unique index on (article_id) WHERE version_end_date IS NULL backs
// the at-most-one-open invariant even if two writers race past the lock.
// The returned slice holds the versions written or updated (closed prior
// version first) so callers can mirror them into a secondary index.
func (s *PostgresStore) RecordVersion(ctx context.Context, lawID, articleNumber, content string, effectiveDate time.Time) (VersionOutcome, []ArticleVersion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return VersionUnchanged, nil, fmt.Errorf("begin version tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	articleID, err := ensureArticle(ctx, tx, lawID, articleNumber)
	if err != nil {
		return VersionUnchanged, nil, err
	}

	var openID, openContent string
	var openStart time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT id, content, version_start_date
		FROM article_versions
		WHERE article_id=$1 AND version_end_date IS NULL
		FOR UPDATE
	`, articleID).Scan(&openID, &openContent, &openStart)
	hasOpen := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return VersionUnchanged, nil, fmt.Errorf("lookup open version: %w", err)
	}

	var touched []ArticleVersion
	outcome := VersionCreated
	if hasOpen {
		if openContent == content {
			// Re-processing the same source; no version churn.
			return VersionUnchanged, nil, nil
		}
		if !effectiveDate.After(openStart) {
			return VersionUnchanged, nil, fmt.Errorf("article %s/%s: %w", lawID, articleNumber, ErrOutOfOrderVersion)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE article_versions SET version_end_date=$2 WHERE id=$1
		`, openID, effectiveDate); err != nil {
			return VersionUnchanged, nil, fmt.Errorf("close version: %w", err)
		}
		closedEnd := effectiveDate
		touched = append(touched, ArticleVersion{
			ID:        openID,
			ArticleID: articleID,
			Content:   openContent,
			StartDate: openStart,
			EndDate:   &closedEnd,
		})
		outcome = VersionSuperseded
	}

	newVersion := ArticleVersion{
		ID:        util.NewID("ver"),
		ArticleID: articleID,
		Content:   content,
		StartDate: effectiveDate,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO article_versions (id, article_id, content, version_start_date)
		VALUES ($1, $2, $3, $4)
	`, newVersion.ID, articleID, content, effectiveDate); err != nil {
		return VersionUnchanged, nil, fmt.Errorf("insert version: %w", err)
	}
	touched = append(touched, newVersion)

	if err := tx.Commit(); err != nil {
		return VersionUnchanged, nil, fmt.Errorf("commit version tx: %w", err)
	}
	return outcome, touched, nil
}

func ensureArticle(ctx context.Context, tx *sql.Tx, lawID, articleNumber string) (string, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO articles (id, law_id, article_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (law_id, article_number) DO NOTHING
	`, util.NewID("art"), lawID, articleNumber); err != nil {
		return "", fmt.Errorf("ensure article: %w", err)
	}

	var articleID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM articles WHERE law_id=$1 AND article_number=$2
	`, lawID, articleNumber).Scan(&articleID)
	if err != nil {
		return "", fmt.Errorf("lookup article: %w", err)
	}
	return articleID, nil
}

func (s *PostgresStore) ListArticleVersions(ctx context.Context, lawID, articleNumber string) ([]ArticleVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT av.id, av.article_id, av.content, av.version_start_date, av.version_end_date, av.inserted_at
		FROM article_versions av
		JOIN articles a ON a.id = av.article_id
		WHERE a.law_id=$1 AND a.article_number=$2
		ORDER BY av.version_start_date ASC
	`, lawID, articleNumber)
	if err != nil {
		return nil, fmt.Errorf("list article versions: %w", err)
	}
	defer rows.Close()

	items := make([]ArticleVersion, 0)
	for rows.Next() {
		var item ArticleVersion
		if err := rows.Scan(&item.ID, &item.ArticleID, &item.Content, &item.StartDate, &item.EndDate, &item.InsertedAt); err != nil {
			return nil, fmt.Errorf("scan article version: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article versions: %w", err)
	}
	return items, nil
}

// VersionAsOf resolves the single version of an article in force at asOf.
// Returns sql.ErrNoRows when no version's interval contains asOf.
func (s *PostgresStore) VersionAsOf(ctx context.Context, lawID, articleNumber string, asOf time.Time) (ArticleVersion, error) {
	var item ArticleVersion
	err := s.db.QueryRowContext(ctx, `
		SELECT av.id, av.article_id, av.content, av.version_start_date, av.version_end_date, av.inserted_at
		FROM article_versions av
		JOIN articles a ON a.id = av.article_id
		WHERE a.law_id=$1 AND a.article_number=$2
			AND av.version_start_date <= $3
			AND (av.version_end_date IS NULL OR av.version_end_date > $3)
	`, lawID, articleNumber, asOf).Scan(&item.ID, &item.ArticleID, &item.Content, &item.StartDate, &item.EndDate, &item.InsertedAt)
	if err != nil {
		return ArticleVersion{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertSourceDocument(ctx context.Context, doc SourceDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_documents (id, law_id, effective_date, archive_url, byte_size)
		VALUES ($1, $2, $3, $4, $5)
	`, doc.ID, doc.LawID, doc.EffectiveDate, doc.ArchiveURL, doc.ByteSize)
	if err != nil {
		return fmt.Errorf("insert source document: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
