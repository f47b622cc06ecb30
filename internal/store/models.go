package store

import "time"

type Law struct {
	ID           string
	Name         string
	ArticleCount int
	CreatedAt    time.Time
}

type Article struct {
	ID            string
	LawID         string
	ArticleNumber string
	CreatedAt     time.Time
}

// ArticleVersion is one entry in an article's append-only history. The text
// is in force during [StartDate, EndDate); a nil EndDate means still in force.
type ArticleVersion struct {
	ID         string
	ArticleID  string
	Content    string
	StartDate  time.Time
	EndDate    *time.Time
	InsertedAt time.Time
}

// VersionOutcome reports what RecordVersion did with an ingested text.
type VersionOutcome int

const (
	// VersionUnchanged means the open version already carries this content.
	VersionUnchanged VersionOutcome = iota
	// VersionCreated means a first version was opened for the article.
	VersionCreated
	// VersionSuperseded means the prior open version was closed and a new one opened.
	VersionSuperseded
)

type SourceDocument struct {
	ID            string
	LawID         string
	EffectiveDate time.Time
	ArchiveURL    string
	ByteSize      int64
	InsertedAt    time.Time
}
