package search

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyQuery rejects blank search input before the store is touched.
var ErrEmptyQuery = errors.New("empty search query")

// Query describes a retrieval request. AsOf selects which version of each
// article is eligible; the zero value means "now".
type Query struct {
	Text  string
	AsOf  time.Time
	Limit int
}

// Result is one matched article, carrying the version in force at the
// query's AsOf date. LaterAmendment flags that the provision was amended
// after AsOf; it is metadata only, never content.
type Result struct {
	LawID          string    `json:"lawId"`
	LawName        string    `json:"lawName"`
	ArticleNumber  string    `json:"articleNumber"`
	Content        string    `json:"content"`
	Score          float64   `json:"score"`
	VersionStart   time.Time `json:"versionStart"`
	LaterAmendment bool      `json:"laterAmendment"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	AsOf    string   `json:"asOf"`
}

// Searcher can execute a full-text search over article versions.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push article versions into a secondary search index.
type Indexer interface {
	IndexVersion(v VersionRecord) error
	IndexVersions(versions []VersionRecord) error
}

// OpenEndTs stands in for "still in force" so interval filters stay numeric.
const OpenEndTs = int64(253402300799) // 9999-12-31T23:59:59Z

// VersionRecord is the data mirrored into the secondary index for one
// article version. StartTs/EndTs bound the validity interval as unix
// seconds; an open version carries EndTs = OpenEndTs. Versions are closed
// only when a successor starts, so a closed record means the provision was
// later amended.
type VersionRecord struct {
	ID            string `json:"id"`
	LawID         string `json:"lawId"`
	LawName       string `json:"lawName"`
	ArticleNumber string `json:"articleNumber"`
	Content       string `json:"content"`
	StartTs       int64  `json:"startTs"`
	EndTs         int64  `json:"endTs"`
}
