// Package parser tokenizes question text into annotated tokens.
package parser

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/soundprediction/aqqu/pkg/types"
)

// Parser turns normalized question text into tokens.
type Parser interface {
	Parse(ctx context.Context, text string) ([]types.Token, error)
}

var defaultStopwords = []string{
	"a", "an", "the", "of", "in", "on", "at", "to", "for", "by", "with", "from",
	"is", "are", "was", "were", "be", "been", "being", "am",
	"do", "does", "did", "has", "have", "had",
	"and", "or", "but", "as", "into", "about",
	"it", "its", "this", "that", "these", "those",
	"i", "you", "he", "she", "we", "they", "me", "him", "her", "us", "them",
	"his", "their", "our", "your", "my",
	"there", "much", "many", "name", "s",
}

var whWords = map[string]bool{
	"who": true, "whom": true, "whose": true, "what": true, "which": true,
	"when": true, "where": true, "why": true, "how": true,
}

// Tokenizer is a rule-based Parser for English questions.
type Tokenizer struct {
	stopwords map[string]bool
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithStopwords replaces the default stopword list.
func WithStopwords(words []string) Option {
	return func(t *Tokenizer) {
		t.stopwords = make(map[string]bool, len(words))
		for _, w := range words {
			t.stopwords[strings.ToLower(w)] = true
		}
	}
}

// NewTokenizer creates a tokenizer with the default stopwords.
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{}
	WithStopwords(defaultStopwords)(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Parse implements Parser. Words are runs of letters, digits and inner
// apostrophes, hyphens or dots; every other non-space rune is punctuation.
func (t *Tokenizer) Parse(ctx context.Context, text string) ([]types.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyText
	}

	var tokens []types.Token
	emit := func(start, end int) {
		word := text[start:end]
		tok := types.Token{
			Text:  word,
			Lemma: lemma(word),
			Index: len(tokens),
			Start: start,
			End:   end,
		}
		r, _ := utf8.DecodeRuneInString(word)
		switch {
		case !isWordRune(r):
			tok.Punct = true
		case isNumber(word):
			tok.Number = true
		}
		tok.WH = whWords[tok.Lemma]
		tok.Stop = !tok.Punct && !tok.WH && t.stopwords[tok.Lemma]
		tokens = append(tokens, tok)
	}

	start := -1
	for i, r := range text {
		switch {
		case isWordRune(r):
			if start < 0 {
				start = i
			}
		case start >= 0 && isJoiner(r) && i+1 < len(text) && isWordRune(nextRune(text, i)):
			// inner apostrophe, hyphen or dot: keep the word together
		default:
			if start >= 0 {
				emit(start, i)
				start = -1
			}
			if !unicode.IsSpace(r) {
				emit(i, i+utf8.RuneLen(r))
			}
		}
	}
	if start >= 0 {
		emit(start, len(text))
	}
	return splitPossessives(tokens), nil
}

// ContentTokens returns the tokens that carry meaning for relation matching:
// no stopwords, punctuation or interrogatives.
func ContentTokens(tokens []types.Token) []types.Token {
	content := make([]types.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.IsContent() && !t.WH {
			content = append(content, t)
		}
	}
	return content
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '-' || r == '.' || r == '’'
}

func nextRune(text string, i int) rune {
	_, size := utf8.DecodeRuneInString(text[i:])
	r, _ := utf8.DecodeRuneInString(text[i+size:])
	return r
}

func isNumber(word string) bool {
	digits := 0
	for _, r := range word {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return digits > 0
}

func lemma(word string) string {
	return strings.ToLower(word)
}

// splitPossessives splits "france's" into "france" and "'s".
func splitPossessives(tokens []types.Token) []types.Token {
	out := make([]types.Token, 0, len(tokens))
	for _, t := range tokens {
		lower := t.Lemma
		suffix := ""
		for _, s := range []string{"'s", "’s"} {
			if len(lower) > len(s) && strings.HasSuffix(lower, s) {
				suffix = s
			}
		}
		if suffix == "" {
			t.Index = len(out)
			out = append(out, t)
			continue
		}
		cut := t.End - len(suffix)
		head := t
		head.Index = len(out)
		head.Text = t.Text[:len(t.Text)-len(suffix)]
		head.Lemma = lemma(head.Text)
		head.End = cut
		out = append(out, head)
		out = append(out, types.Token{
			Text:  t.Text[len(t.Text)-len(suffix):],
			Lemma: suffix,
			Index: len(out),
			Start: cut,
			End:   t.End,
			Stop:  true,
		})
	}
	return out
}
