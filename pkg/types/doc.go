// Package types defines the core data types shared by the translation pipeline.
//
// This package contains the value objects threaded through aqqu:
//   - Query: one in-flight translation request, annotated stage by stage
//   - Token: an annotated token produced by the parser
//   - IdentifiedEntity: an entity mention matched against the knowledge base
//   - AnswerType: the expected answer classification of a question
//   - RankerParameters: the ranking configuration shared with pattern matching
//
// # Query lifecycle
//
// A Query is created from the raw question text (which is normalized to lower
// case exactly once) and then annotated in a strict order:
//
//	tokens -> identified entities -> target type -> content tokens -> relation oracle
//
// Every annotation can be set exactly once. Freeze is called before candidate
// generation starts; any later mutation returns ErrQueryFrozen.
//
//	q := types.NewQuery("Who founded Google?")
//	if err := q.SetTokens(tokens); err != nil {
//	    // Handle ordering error
//	}
package types
