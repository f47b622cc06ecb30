// Package ingest turns raw consolidated law documents into versioned
// article records. A document is segmented into articles, each article is
// applied against the version history independently, and the versions that
// changed are mirrored into the search index.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"claro/api/internal/blob"
	"claro/api/internal/search"
	"claro/api/internal/segment"
	"claro/api/internal/store"
	"claro/api/internal/util"
)

// Store is the version history the ingestor writes to.
type Store interface {
	EnsureLaw(ctx context.Context, lawID, lawName string) (store.Law, error)
	RecordVersion(ctx context.Context, lawID, articleNumber, content string, effectiveDate time.Time) (store.VersionOutcome, []store.ArticleVersion, error)
	InsertSourceDocument(ctx context.Context, doc store.SourceDocument) error
}

// Indexer mirrors touched versions into the secondary search index.
// *search.Service satisfies it.
type Indexer interface {
	IndexVersions(versions []search.VersionRecord)
}

// Ingestor applies consolidated documents to the version history.
// Archive and Index are optional; nil disables raw-text archiving and
// search mirroring respectively.
type Ingestor struct {
	store   Store
	archive blob.Store
	index   Indexer
}

func New(s Store, archive blob.Store, index Indexer) *Ingestor {
	return &Ingestor{store: s, archive: archive, index: index}
}

// Result summarizes one document ingestion. Changed counts articles whose
// stored state changed (a first version or a supersession); Unchanged
// counts articles re-ingested with identical content; Failed lists
// articles that were rejected, most commonly for an out-of-order
// effective date. A failed article never aborts the rest of the batch.
type Result struct {
	DocumentID string         `json:"documentId"`
	Changed    int            `json:"changed"`
	Unchanged  int            `json:"unchanged"`
	Failed     []ArticleError `json:"failed,omitempty"`
	ArchiveURL string         `json:"archiveUrl,omitempty"`
}

// ArticleError records why a single article was rejected.
type ArticleError struct {
	ArticleNumber string `json:"articleNumber"`
	Error         string `json:"error"`
}

// IngestDocument segments rawText and applies every article to the
// version history under the given effective date. The raw document is
// archived and recorded as a source document when an archive is
// configured; versions that changed are pushed to the search index.
func (in *Ingestor) IngestDocument(ctx context.Context, lawID, lawName string, effectiveDate time.Time, rawText string) (Result, error) {
	if lawName == "" {
		lawName = lawID
	}
	law, err := in.store.EnsureLaw(ctx, lawID, lawName)
	if err != nil {
		return Result{}, err
	}

	articles, err := segment.Segment(rawText)
	if err != nil {
		return Result{}, err
	}

	res := Result{DocumentID: util.NewID("doc")}
	var mirror []search.VersionRecord
	for art := range articles {
		outcome, touched, err := in.store.RecordVersion(ctx, law.ID, art.Number, art.Text, effectiveDate)
		if err != nil {
			log.Printf("ingest: law=%s art=%s: %v", law.ID, art.Number, err)
			res.Failed = append(res.Failed, ArticleError{ArticleNumber: art.Number, Error: err.Error()})
			continue
		}
		if outcome == store.VersionUnchanged {
			res.Unchanged++
			continue
		}
		res.Changed++
		for _, v := range touched {
			mirror = append(mirror, versionRecord(law, art.Number, v))
		}
	}

	if in.index != nil && len(mirror) > 0 {
		in.index.IndexVersions(mirror)
	}

	if url, err := in.archiveRaw(ctx, law.ID, effectiveDate, res.DocumentID, rawText); err != nil {
		// The version history is already committed; losing the raw copy
		// is reported but does not fail the ingestion.
		log.Printf("ingest: archive law=%s: %v", law.ID, err)
	} else {
		res.ArchiveURL = url
	}

	doc := store.SourceDocument{
		ID:            res.DocumentID,
		LawID:         law.ID,
		EffectiveDate: effectiveDate,
		ArchiveURL:    res.ArchiveURL,
		ByteSize:      int64(len(rawText)),
	}
	if err := in.store.InsertSourceDocument(ctx, doc); err != nil {
		return res, fmt.Errorf("record source document: %w", err)
	}
	return res, nil
}

func (in *Ingestor) archiveRaw(ctx context.Context, lawID string, effectiveDate time.Time, docID, rawText string) (string, error) {
	if in.archive == nil {
		return "", nil
	}
	key := fmt.Sprintf("%s/%s/%s.txt", lawID, effectiveDate.Format("2006-01-02"), docID)
	return in.archive.Put(ctx, key, []byte(rawText))
}

func versionRecord(law store.Law, articleNumber string, v store.ArticleVersion) search.VersionRecord {
	endTs := search.OpenEndTs
	if v.EndDate != nil {
		endTs = v.EndDate.Unix()
	}
	return search.VersionRecord{
		ID:            v.ID,
		LawID:         law.ID,
		LawName:       law.Name,
		ArticleNumber: articleNumber,
		Content:       v.Content,
		StartTs:       v.StartDate.Unix(),
		EndTs:         endTs,
	}
}
