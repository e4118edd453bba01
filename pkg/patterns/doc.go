/*
Package patterns instantiates structural query templates with the entities
identified in a question.

Three template families are supported, matched in the fixed order of
Templates:

	ERT      entity -r-> answer
	ERMRT    entity -r1-> mediator -r2-> answer
	ERMRERT  entity -r1-> mediator <-r2- entity2, mediator -r3-> answer

Relations are discovered by querying the backend around each identified
entity, so every candidate produced is structurally valid for the knowledge
base it was matched against. Candidates are later ranked and executed through
Candidate.Result.
*/
package patterns
