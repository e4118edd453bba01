package dto

import (
	"errors"
	"strings"

	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/telemetry"
	"github.com/soundprediction/aqqu/pkg/types"
)

// MaxQuestionLength bounds the accepted question size in bytes.
const MaxQuestionLength = 1000

var (
	// ErrQuestionTooLong is returned for questions over MaxQuestionLength.
	ErrQuestionTooLong = errors.New("question exceeds maximum length")
	// ErrInvalidLimit is returned for negative limits.
	ErrInvalidLimit = errors.New("limit must not be negative")
)

// TranslateRequest is the body of the translate and answer endpoints.
type TranslateRequest struct {
	Question string `json:"question" binding:"required"`
	// Limit bounds the executed candidates; nil uses the server default.
	Limit *int `json:"limit,omitempty"`
}

// Validate performs validation on TranslateRequest
func (r *TranslateRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return errors.New("question cannot be empty")
	}
	if len(r.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	if r.Limit != nil && *r.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// EntityMatch is a linked entity mention.
type EntityMatch struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Surface      string  `json:"surface"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
	Score        float64 `json:"score"`
	PerfectMatch bool    `json:"perfect_match"`
}

// Query is the annotated question.
type Query struct {
	Text          string            `json:"text"`
	ContentTokens []string          `json:"content_tokens"`
	Entities      []EntityMatch     `json:"entities"`
	TargetType    *types.AnswerType `json:"target_type,omitempty"`
	IsCountQuery  bool              `json:"is_count_query"`
}

// NewQuery converts a translated query.
func NewQuery(q *types.Query) Query {
	out := Query{
		Text:          q.Text(),
		ContentTokens: make([]string, 0, len(q.ContentTokens())),
		Entities:      make([]EntityMatch, 0, len(q.IdentifiedEntities())),
		TargetType:    q.TargetType(),
		IsCountQuery:  q.IsCountQuery(),
	}
	for _, t := range q.ContentTokens() {
		out.ContentTokens = append(out.ContentTokens, t.Text)
	}
	for _, e := range q.IdentifiedEntities() {
		out.Entities = append(out.Entities, EntityMatch{
			ID:           e.ID(),
			Name:         e.Entity.Name,
			Surface:      e.Surface,
			Start:        e.Span.Start,
			End:          e.Span.End,
			Score:        e.Score,
			PerfectMatch: e.PerfectMatch,
		})
	}
	return out
}

// Candidate is a generated graph query.
type Candidate struct {
	Template  string             `json:"template"`
	Entities  []string           `json:"entities"`
	Relations []string           `json:"relations"`
	Count     bool               `json:"count,omitempty"`
	Score     float64            `json:"score"`
	Features  map[string]float64 `json:"features,omitempty"`
}

// NewCandidate converts a query candidate.
func NewCandidate(c *patterns.Candidate) Candidate {
	return Candidate{
		Template:  c.Template.String(),
		Entities:  c.EntityIDs(),
		Relations: c.Relations,
		Count:     c.Count,
		Score:     c.Score,
		Features:  c.Features,
	}
}

// TranslateResponse lists the unranked candidates of a question.
type TranslateResponse struct {
	Query      Query       `json:"query"`
	Candidates []Candidate `json:"candidates"`
}

// NewTranslateResponse builds a TranslateResponse.
func NewTranslateResponse(q *types.Query, candidates []*patterns.Candidate) TranslateResponse {
	resp := TranslateResponse{Query: NewQuery(q), Candidates: make([]Candidate, 0, len(candidates))}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, NewCandidate(c))
	}
	return resp
}

// Answer is one executed candidate with its rows.
type Answer struct {
	Candidate Candidate  `json:"candidate"`
	Rows      [][]string `json:"rows"`
}

// AnswerResponse lists the non-empty results in rank order.
type AnswerResponse struct {
	Query   Query                      `json:"query"`
	Answers []Answer                   `json:"answers"`
	Stats   telemetry.TranslationStats `json:"stats"`
}

// NewAnswerResponse builds an AnswerResponse.
func NewAnswerResponse(q *types.Query, results []execution.TranslationResult, stats telemetry.TranslationStats) AnswerResponse {
	resp := AnswerResponse{Query: NewQuery(q), Answers: make([]Answer, 0, len(results)), Stats: stats}
	for _, r := range results {
		rows := make([][]string, len(r.Rows))
		for i, row := range r.Rows {
			rows[i] = row
		}
		resp.Answers = append(resp.Answers, Answer{Candidate: NewCandidate(r.Candidate), Rows: rows})
	}
	return resp
}

// ScorerResponse describes the active scorer.
type ScorerResponse struct {
	Name         string   `json:"name"`
	EntityLinker string   `json:"entity_linker"`
	Available    []string `json:"available"`
}

// SetScorerRequest selects a scorer by name.
type SetScorerRequest struct {
	Name string `json:"name" binding:"required"`
}
