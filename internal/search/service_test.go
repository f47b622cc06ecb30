package search

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestServiceSearchRejectsBlankQuery(t *testing.T) {
	svc := NewService(nil, nil)
	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.Search(context.Background(), Query{Text: text})
		if !errors.Is(err, ErrEmptyQuery) {
			t.Fatalf("query %q: expected ErrEmptyQuery, got %v", text, err)
		}
	}
}

func TestServiceSearchSkipsUnhealthyMeili(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://localhost:1/unused")
	if err != nil {
		t.Fatalf("open db handle: %v", err)
	}
	_ = db.Close()

	// Unhealthy Meilisearch must be bypassed entirely; the closed handle
	// proves the Postgres backend was the one consulted.
	svc := NewService(&Meili{}, NewPgFTS(db))
	_, err = svc.Search(context.Background(), Query{Text: "podatek"})
	if err == nil {
		t.Fatal("expected an error from the postgres backend")
	}
	if !strings.Contains(err.Error(), "database is closed") {
		t.Fatalf("expected the closed-handle error, got %v", err)
	}
}
