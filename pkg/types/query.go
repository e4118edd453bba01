package types

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText NFC-normalizes and lower-cases question text.
func NormalizeText(text string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(text)))
}

// Query is one in-flight translation request.
//
// Annotations are set exactly once, in order, by the pipeline stages. Reads
// are safe at any time; writes after Freeze fail.
type Query struct {
	text string

	tokens             []Token
	contentTokens      []Token
	identifiedEntities []*IdentifiedEntity
	targetType         *AnswerType
	relationOracle     RelationOracle
	isCountQuery       bool

	tokensSet   bool
	entitiesSet bool
	targetSet   bool
	contentSet  bool
	oracleSet   bool
	frozen      bool
}

// NewQuery creates a query from raw question text.
func NewQuery(text string) *Query {
	return &Query{text: NormalizeText(text)}
}

// Text returns the normalized question text.
func (q *Query) Text() string { return q.text }

// Tokens returns the parsed tokens.
func (q *Query) Tokens() []Token { return q.tokens }

// ContentTokens returns the semantically significant tokens.
func (q *Query) ContentTokens() []Token { return q.contentTokens }

// IdentifiedEntities returns the entity mentions found in the question.
func (q *Query) IdentifiedEntities() []*IdentifiedEntity { return q.identifiedEntities }

// TargetType returns the answer type, or nil when none was assigned.
func (q *Query) TargetType() *AnswerType { return q.targetType }

// RelationOracle returns the active relation oracle, possibly nil.
func (q *Query) RelationOracle() RelationOracle { return q.relationOracle }

// IsCountQuery reports whether the question asks for a count.
func (q *Query) IsCountQuery() bool { return q.isCountQuery }

// Frozen reports whether candidate generation has started.
func (q *Query) Frozen() bool { return q.frozen }

func (q *Query) checkWritable(field string, set bool) error {
	if q.frozen {
		return fmt.Errorf("set %s: %w", field, ErrQueryFrozen)
	}
	if set {
		return fmt.Errorf("set %s: %w", field, ErrFieldAlreadySet)
	}
	return nil
}

// SetTokens stores the parsed tokens.
func (q *Query) SetTokens(tokens []Token) error {
	if err := q.checkWritable("tokens", q.tokensSet); err != nil {
		return err
	}
	q.tokens = tokens
	q.tokensSet = true
	return nil
}

// SetIdentifiedEntities stores the linked entities. Tokens must be set.
func (q *Query) SetIdentifiedEntities(entities []*IdentifiedEntity) error {
	if err := q.checkWritable("identified entities", q.entitiesSet); err != nil {
		return err
	}
	if !q.tokensSet {
		return fmt.Errorf("set identified entities before tokens: %w", ErrOutOfOrder)
	}
	q.identifiedEntities = entities
	q.entitiesSet = true
	return nil
}

// SetTargetType stores the answer type. A nil type records that no type
// could be assigned.
func (q *Query) SetTargetType(t *AnswerType) error {
	if err := q.checkWritable("target type", q.targetSet); err != nil {
		return err
	}
	if !q.entitiesSet {
		return fmt.Errorf("set target type before entities: %w", ErrOutOfOrder)
	}
	q.targetType = t
	q.targetSet = true
	return nil
}

// SetCountQuery flags the query as asking for a count.
func (q *Query) SetCountQuery(count bool) error {
	if q.frozen {
		return fmt.Errorf("set count flag: %w", ErrQueryFrozen)
	}
	q.isCountQuery = count
	return nil
}

// SetContentTokens stores the content-token subsequence.
func (q *Query) SetContentTokens(tokens []Token) error {
	if err := q.checkWritable("content tokens", q.contentSet); err != nil {
		return err
	}
	if !q.targetSet {
		return fmt.Errorf("set content tokens before target type: %w", ErrOutOfOrder)
	}
	q.contentTokens = tokens
	q.contentSet = true
	return nil
}

// SetRelationOracle stores the relation oracle of the active scorer.
func (q *Query) SetRelationOracle(oracle RelationOracle) error {
	if err := q.checkWritable("relation oracle", q.oracleSet); err != nil {
		return err
	}
	if !q.contentSet {
		return fmt.Errorf("set relation oracle before content tokens: %w", ErrOutOfOrder)
	}
	q.relationOracle = oracle
	q.oracleSet = true
	return nil
}

// Freeze marks the start of candidate generation.
func (q *Query) Freeze() {
	q.frozen = true
}

// ContentText joins the content tokens.
func (q *Query) ContentText() string {
	return JoinTokens(q.contentTokens)
}

func (q *Query) String() string {
	return q.text
}
