// Package aqqu translates natural-language questions into ranked graph
// queries against a knowledge base.
//
// A question is tokenized, its entity mentions are linked against an entity
// index, and its answer type is determined. Candidate queries are then
// generated from three structural templates:
//
//	ERT      entity -relation-> target
//	ERMRT    entity -relation-> mediator -relation-> target
//	ERMRERT  entity -relation-> mediator <-relation- entity, mediator -relation-> target
//
// The candidates are ranked by the active scorer and the best of them are
// executed against the backend.
//
// # Basic Usage
//
//	b := backend.NewMemoryBackend()
//	f, err := backend.LoadFixtureFile("kb.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := b.LoadFixture(ctx, f); err != nil {
//		log.Fatal(err)
//	}
//
//	idx := entityindex.NewMemoryIndex()
//	// ... add surface forms, or load them with entityindex.Load
//
//	t, err := aqqu.New(aqqu.Dependencies{Backend: b, Index: idx})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Close()
//
//	q, results, err := t.TranslateAndExecuteQuery(ctx, "what is the capital of france", 5)
//
// # Scorers
//
// The scorer decides both the candidate ranking and the entity linker. Swap
// it at runtime with SetScorer; the linker is rebuilt only when the new
// scorer asks for a different linker kind:
//
//	scorer, _ := ranker.New(ranker.GLiNERScorer, ranker.CatalogueOptions{})
//	err := t.SetScorer(scorer)
//
// # Statistics
//
// TranslateAndExecuteQueryWithStats also returns the backend query counts
// and times of the translation and fetch phases. Each request uses its own
// backend.Accumulator, so concurrent requests do not share counters.
package aqqu
