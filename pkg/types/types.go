package types

import (
	"errors"
	"fmt"
	"strings"
)

// Query annotation errors
var (
	ErrFieldAlreadySet = errors.New("query field already set")
	ErrQueryFrozen     = errors.New("query is frozen")
	ErrOutOfOrder      = errors.New("query annotation out of order")
	ErrEmptyText       = errors.New("query text cannot be empty")
)

// ContextKey is the type of keys stored in request contexts.
type ContextKey string

const (
	// ContextKeyRequestID carries the id of the current translation request.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyRequestSource carries the caller surface (cli, server).
	ContextKeyRequestSource ContextKey = "request_source"
	// ContextKeySessionID carries an optional client session id.
	ContextKeySessionID ContextKey = "session_id"
)

// Token is a single annotated token of a parsed question.
type Token struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`

	Stop   bool `json:"stop,omitempty"`
	Punct  bool `json:"punct,omitempty"`
	Number bool `json:"number,omitempty"`
	// WH marks interrogative words (who, what, when, ...).
	WH bool `json:"wh,omitempty"`
}

// IsContent reports whether the token carries meaning for matching.
func (t Token) IsContent() bool {
	return !t.Stop && !t.Punct
}

// JoinTokens joins the text of tokens with single spaces.
func JoinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// Entity is a knowledge-base entity.
type Entity struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Types      []string `json:"types,omitempty" yaml:"types,omitempty"`
	Popularity float64  `json:"popularity,omitempty" yaml:"popularity,omitempty"`
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share a token.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IdentifiedEntity is an entity mention found in a question.
type IdentifiedEntity struct {
	Entity  Entity  `json:"entity"`
	Span    Span    `json:"span"`
	Surface string  `json:"surface"`
	Score   float64 `json:"score"`
	// PerfectMatch is set when the surface equals the entity name.
	PerfectMatch bool `json:"perfect_match,omitempty"`
}

// ID returns the knowledge-base id of the mention.
func (e *IdentifiedEntity) ID() string {
	return e.Entity.ID
}

func (e *IdentifiedEntity) String() string {
	return fmt.Sprintf("%s[%d:%d]->%s(%.3f)", e.Surface, e.Span.Start, e.Span.End, e.Entity.ID, e.Score)
}

// AnswerTypeClass is the coarse class of an expected answer.
type AnswerTypeClass string

const (
	AnswerClassEntity AnswerTypeClass = "entity"
	AnswerClassDate   AnswerTypeClass = "date"
	AnswerClassValue  AnswerTypeClass = "value"
	AnswerClassCount  AnswerTypeClass = "count"
)

// AnswerType is the target type assigned to a query.
type AnswerType struct {
	Class AnswerTypeClass `json:"class"`
	// TargetTypes are knowledge-base type ids the answer should carry.
	TargetTypes []string `json:"target_types,omitempty"`
}

// LinkerKind tags an entity-linker implementation.
type LinkerKind string

const (
	LinkerSurface LinkerKind = "surface"
	LinkerGLiNER  LinkerKind = "gliner"
)

// RelationOracle supplies preferred relations for an identified entity.
// An empty result means no preference.
type RelationOracle interface {
	Relations(query *Query, entity *IdentifiedEntity) []string
}

// RankerParameters configures entity linking, pattern matching and scoring.
type RankerParameters struct {
	// EntityLinker selects the linker strategy.
	EntityLinker LinkerKind `json:"entity_linker" mapstructure:"entity_linker"`
	// RelationOracle biases relation choice during pattern matching.
	RelationOracle RelationOracle `json:"-" mapstructure:"-"`

	MaxNGram           int      `json:"max_ngram" mapstructure:"max_ngram"`
	MinSurfaceScore    float64  `json:"min_surface_score" mapstructure:"min_surface_score"`
	MaxEntitiesPerSpan int      `json:"max_entities_per_span" mapstructure:"max_entities_per_span"`
	GLiNERModel        string   `json:"gliner_model,omitempty" mapstructure:"gliner_model"`
	GLiNERLabels       []string `json:"gliner_labels,omitempty" mapstructure:"gliner_labels"`
	// RestrictAnswerType adds target-type constraints to candidates.
	RestrictAnswerType bool `json:"restrict_answer_type" mapstructure:"restrict_answer_type"`
	// MaxRelationsPerEntity bounds the distinct relation tuples matched per
	// entity (or entity pair) and template.
	MaxRelationsPerEntity int `json:"max_relations_per_entity" mapstructure:"max_relations_per_entity"`
}

// DefaultRankerParameters returns the parameters of the default scorer.
func DefaultRankerParameters() RankerParameters {
	return RankerParameters{
		EntityLinker:          LinkerSurface,
		MaxNGram:              4,
		MinSurfaceScore:       0.01,
		MaxEntitiesPerSpan:    3,
		MaxRelationsPerEntity: 100,
	}
}
