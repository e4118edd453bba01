// Package nlp wraps OpenAI-compatible chat completions for components that
// ask a language model for small structured judgements.
//
//	client, err := nlp.NewOpenAIClient(nlp.Config{Model: "gpt-4o-mini"})
//	raw, err := nlp.ChatJSON(ctx, client, cfg, systemPrompt, userPrompt)
//
// Responses are stripped of reasoning tags and repaired into valid JSON
// before they are returned.
package nlp
