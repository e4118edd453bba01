package answertype

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/soundprediction/aqqu/pkg/nlp"
	"github.com/soundprediction/aqqu/pkg/types"
)

const systemPrompt = `You classify the expected answer of a question over a knowledge graph.
Respond with a JSON object {"class": ..., "target_types": [...], "count": ...} where
class is one of "entity", "date", "value", "count" or "none", target_types lists
knowledge-base type ids such as "people.person" or "location.location" (may be empty)
and count is true when the question asks how many things there are.`

type llmAnswer struct {
	Class       string   `json:"class"`
	TargetTypes []string `json:"target_types"`
	Count       bool     `json:"count"`
}

// LLMIdentifier asks a chat model for the answer type.
type LLMIdentifier struct {
	client *openai.Client
	config nlp.Config
	logger *slog.Logger
}

// NewLLMIdentifier creates an identifier backed by an OpenAI-compatible model.
func NewLLMIdentifier(config nlp.Config, logger *slog.Logger) (*LLMIdentifier, error) {
	client, err := nlp.NewOpenAIClient(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMIdentifier{client: client, config: config, logger: logger}, nil
}

// IdentifyTarget implements Identifier.
func (l *LLMIdentifier) IdentifyTarget(ctx context.Context, q *types.Query) error {
	user := fmt.Sprintf("Question: %s", q.Text())
	if entities := q.IdentifiedEntities(); len(entities) > 0 {
		user += "\nMentioned entities:"
		for _, e := range entities {
			user += fmt.Sprintf("\n- %s (%s)", e.Entity.Name, e.ID())
		}
	}

	raw, err := nlp.ChatJSON(ctx, l.client, l.config, systemPrompt, user)
	if err != nil {
		return fmt.Errorf("answer type identification failed: %w", err)
	}

	var answer llmAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return fmt.Errorf("failed to decode answer type %q: %w", raw, err)
	}
	l.logger.Debug("Identified answer type", "class", answer.Class, "types", answer.TargetTypes, "count", answer.Count)

	class := types.AnswerTypeClass(answer.Class)
	switch class {
	case types.AnswerClassEntity, types.AnswerClassDate, types.AnswerClassValue, types.AnswerClassCount:
		if err := q.SetTargetType(&types.AnswerType{Class: class, TargetTypes: answer.TargetTypes}); err != nil {
			return err
		}
	default:
		if err := q.SetTargetType(nil); err != nil {
			return err
		}
	}
	if answer.Count || class == types.AnswerClassCount {
		return q.SetCountQuery(true)
	}
	return nil
}
