/*
Package backend executes structured graph queries against a knowledge base.

A StructuredQuery is a conjunction of triple patterns over variables and
constants, with not-equal filters and projections. Backends translate it to
their native language: the memory backend evaluates it directly, while the
Neo4j and Ladybug backends render Cypher over the schema

	(:Entity {mid, name})-[:RELATION {name}]->(:Entity {mid, name})

Query accounting is request scoped. Callers pass an Accumulator into every
Execute call and read query counts and cumulative time from it:

	acc := backend.NewAccumulator()
	rows, err := b.Execute(ctx, q, acc)
	log.Info("executed", "queries", acc.Queries(), "time", acc.TotalTime())

Any Backend can be wrapped in a BreakerBackend to fail fast while the store is
unhealthy.
*/
package backend
