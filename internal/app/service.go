package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"claro/api/internal/answer"
	"claro/api/internal/answercache"
	"claro/api/internal/config"
	"claro/api/internal/ingest"
	"claro/api/internal/search"
	"claro/api/internal/store"
)

// noMatchAnswer is returned verbatim when retrieval finds nothing; it is
// cached like any composed answer so repeated dead-end questions stay cheap.
const noMatchAnswer = "Nie znaleziono odpowiednich przepisów prawnych dla tego zapytania. Spróbuj przeformułować pytanie lub użyć innych słów kluczowych."

const dateLayout = "2006-01-02"

type IngestInput struct {
	LawID         string `json:"lawId"`
	LawName       string `json:"lawName"`
	EffectiveDate string `json:"effectiveDate"`
	Text          string `json:"text"`
}

type AskSource struct {
	LawID         string `json:"lawId"`
	LawName       string `json:"lawName"`
	ArticleNumber string `json:"articleNumber"`
}

// askPayload is what gets serialized into the answer cache. Cached and
// AgeSeconds are stamped per request after the cache lookup.
type askPayload struct {
	Answer        string      `json:"answer"`
	Sources       []AskSource `json:"sources"`
	FoundArticles int         `json:"foundArticles"`
	AsOf          string      `json:"asOf"`
}

type AskResponse struct {
	Answer        string      `json:"answer"`
	Sources       []AskSource `json:"sources"`
	FoundArticles int         `json:"foundArticles"`
	AsOf          string      `json:"asOf"`
	Cached        bool        `json:"cached"`
	AgeSeconds    int64       `json:"ageSeconds"`
}

type dataStore interface {
	ListLaws(context.Context) ([]store.Law, error)
	GetLaw(context.Context, string) (store.Law, error)
	ListArticleVersions(ctx context.Context, lawID, articleNumber string) ([]store.ArticleVersion, error)
	VersionAsOf(ctx context.Context, lawID, articleNumber string, asOf time.Time) (store.ArticleVersion, error)
	Ping(context.Context) error
}

type documentIngestor interface {
	IngestDocument(ctx context.Context, lawID, lawName string, effectiveDate time.Time, rawText string) (ingest.Result, error)
}

type searcher interface {
	Search(ctx context.Context, q search.Query) (search.Response, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	ingestor documentIngestor
	search   searcher
	cache    *answercache.Cache
	composer answer.Composer
}

// NewService wires the request-facing service. composer may be nil, which
// disables /api/ask while leaving ingestion and search available.
func NewService(cfg config.Config, st dataStore, ing documentIngestor, se searcher, cache *answercache.Cache, composer answer.Composer) *Service {
	return &Service{cfg: cfg, store: st, ingestor: ing, search: se, cache: cache, composer: composer}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Ingest(ctx context.Context, input IngestInput) (ingest.Result, error) {
	lawID := strings.TrimSpace(input.LawID)
	if lawID == "" {
		return ingest.Result{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "lawId is required", nil)
	}
	if strings.TrimSpace(input.Text) == "" {
		return ingest.Result{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
	}
	effectiveDate, err := time.Parse(dateLayout, strings.TrimSpace(input.EffectiveDate))
	if err != nil {
		return ingest.Result{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "effectiveDate must be YYYY-MM-DD", nil)
	}
	return s.ingestor.IngestDocument(ctx, lawID, strings.TrimSpace(input.LawName), effectiveDate, input.Text)
}

func (s *Service) Search(ctx context.Context, query, asOfRaw string, limit int) (search.Response, error) {
	asOf, err := parseAsOf(asOfRaw)
	if err != nil {
		return search.Response{}, err
	}
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	return s.search.Search(ctx, search.Query{Text: query, AsOf: asOf, Limit: limit})
}

// Ask answers a question from the provisions in force at asOf. Answers are
// cached per normalized (question, asOf day) pair; concurrent identical
// questions share one retrieval and one model call.
func (s *Service) Ask(ctx context.Context, question, asOfRaw string) (AskResponse, error) {
	if s.composer == nil {
		return AskResponse{}, domainError(http.StatusServiceUnavailable, "ANSWERS_UNAVAILABLE", "Answer composition is not configured", nil)
	}
	if strings.TrimSpace(question) == "" {
		return AskResponse{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "question is required", nil)
	}
	asOf, err := parseAsOf(asOfRaw)
	if err != nil {
		return AskResponse{}, err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	key := answercache.Key(question, asOf)
	res, err := s.cache.GetOrCompute(ctx, key, s.cfg.AnswerTTL, func(ctx context.Context) ([]byte, error) {
		return s.computeAnswer(ctx, question, asOf)
	})
	if err != nil {
		return AskResponse{}, err
	}

	var payload askPayload
	if err := json.Unmarshal(res.Payload, &payload); err != nil {
		return AskResponse{}, fmt.Errorf("decode cached answer: %w", err)
	}
	return AskResponse{
		Answer:        payload.Answer,
		Sources:       payload.Sources,
		FoundArticles: payload.FoundArticles,
		AsOf:          payload.AsOf,
		Cached:        res.Cached,
		AgeSeconds:    int64(res.Age.Seconds()),
	}, nil
}

func (s *Service) computeAnswer(ctx context.Context, question string, asOf time.Time) ([]byte, error) {
	found, err := s.search.Search(ctx, search.Query{Text: question, AsOf: asOf, Limit: s.cfg.SearchLimit})
	if err != nil {
		return nil, err
	}

	payload := askPayload{
		Answer:        noMatchAnswer,
		Sources:       []AskSource{},
		FoundArticles: len(found.Results),
		AsOf:          asOf.Format(dateLayout),
	}
	if len(found.Results) > 0 {
		contexts := make([]answer.ArticleContext, 0, len(found.Results))
		for _, r := range found.Results {
			contexts = append(contexts, answer.ArticleContext{
				ArticleNumber: r.ArticleNumber,
				LawName:       r.LawName,
				Content:       r.Content,
			})
			payload.Sources = append(payload.Sources, AskSource{
				LawID:         r.LawID,
				LawName:       r.LawName,
				ArticleNumber: r.ArticleNumber,
			})
		}
		composed, err := s.composer.Compose(ctx, question, contexts)
		if err != nil {
			return nil, fmt.Errorf("compose answer: %w", err)
		}
		payload.Answer = composed
	}
	return json.Marshal(payload)
}

func (s *Service) ListLaws(ctx context.Context) (map[string]any, error) {
	laws, err := s.store.ListLaws(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(laws))
	for _, law := range laws {
		items = append(items, map[string]any{
			"lawId":        law.ID,
			"lawName":      law.Name,
			"articleCount": law.ArticleCount,
			"createdAt":    law.CreatedAt,
		})
	}
	return map[string]any{"laws": items}, nil
}

// ArticleHistory returns every recorded version of one article, newest
// first, for the timeline view.
func (s *Service) ArticleHistory(ctx context.Context, lawID, articleNumber string) (map[string]any, error) {
	law, err := s.store.GetLaw(ctx, lawID)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListArticleVersions(ctx, lawID, articleNumber)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		items = append(items, versionPayload(v))
	}
	return map[string]any{
		"lawId":         law.ID,
		"lawName":       law.Name,
		"articleNumber": articleNumber,
		"versions":      items,
	}, nil
}

// ArticleAsOf returns the single version of an article in force at asOf.
func (s *Service) ArticleAsOf(ctx context.Context, lawID, articleNumber, asOfRaw string) (map[string]any, error) {
	asOf, err := parseAsOf(asOfRaw)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	version, err := s.store.VersionAsOf(ctx, lawID, articleNumber, asOf)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"lawId":         lawID,
		"articleNumber": articleNumber,
		"asOf":          asOf.Format(dateLayout),
		"version":       versionPayload(version),
	}, nil
}

func versionPayload(v store.ArticleVersion) map[string]any {
	payload := map[string]any{
		"id":               v.ID,
		"content":          v.Content,
		"versionStartDate": v.StartDate.Format(dateLayout),
		"insertedAt":       v.InsertedAt,
	}
	if v.EndDate != nil {
		payload["versionEndDate"] = v.EndDate.Format(dateLayout)
	}
	return payload
}

func parseAsOf(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	asOf, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "asOf must be YYYY-MM-DD", nil)
	}
	return asOf, nil
}
