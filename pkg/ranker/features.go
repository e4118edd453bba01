package ranker

import (
	"sort"
	"strings"

	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/types"
)

// Feature names
const (
	FeatureEntityScore     = "entity_score"
	FeaturePerfectMatch    = "perfect_match"
	FeatureRelationOverlap = "relation_overlap"
	FeatureTemplatePrior   = "template_prior"
	FeatureOracle          = "oracle"
	FeatureTypeMatch       = "type_match"
	FeatureSimilarity      = "relation_similarity"
)

// Weights maps feature names to linear weights.
type Weights map[string]float64

// DefaultWeights are hand-tuned weights for the surface linker.
func DefaultWeights() Weights {
	return Weights{
		FeatureEntityScore:     1.0,
		FeaturePerfectMatch:    0.5,
		FeatureRelationOverlap: 2.0,
		FeatureTemplatePrior:   1.0,
		FeatureOracle:          1.5,
		FeatureTypeMatch:       0.5,
		FeatureSimilarity:      1.5,
		FeatureRerank:          1.5,
	}
}

var templatePriors = map[patterns.Template]float64{
	patterns.ERT:     0.3,
	patterns.ERMRT:   0.2,
	patterns.ERMRERT: 0.4,
}

// Score is the weighted sum of features, summed in name order so equal
// feature maps always produce identical scores.
func (w Weights) Score(features map[string]float64) float64 {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	score := 0.0
	for _, name := range names {
		score += w[name] * features[name]
	}
	return score
}

// extractFeatures computes the lexical features of c.
func extractFeatures(c *patterns.Candidate) map[string]float64 {
	features := map[string]float64{
		FeatureTemplatePrior: templatePriors[c.Template],
	}

	var perfect float64
	for _, e := range c.Entities {
		features[FeatureEntityScore] += e.Score
		if e.PerfectMatch {
			perfect++
		}
	}
	if n := float64(len(c.Entities)); n > 0 {
		features[FeatureEntityScore] /= n
		features[FeaturePerfectMatch] = perfect / n
	}

	words := relationWords(c.Relations)
	tokens := residualTokens(c)
	if len(tokens) > 0 {
		matched := 0
		for _, t := range tokens {
			if words.matches(t.Lemma) {
				matched++
			}
		}
		features[FeatureRelationOverlap] = float64(matched) / float64(len(tokens))
	}

	if c.Query != nil && len(c.Entities) > 0 {
		if oracle := c.Query.RelationOracle(); oracle != nil {
			for _, r := range oracle.Relations(c.Query, c.Entities[0]) {
				if r == c.Relations[0] {
					features[FeatureOracle] = 1
				}
			}
		}
	}

	if c.TargetType != nil {
		for _, t := range c.TargetType.TargetTypes {
			parts := strings.Split(t, ".")
			if words.matches(parts[len(parts)-1]) {
				features[FeatureTypeMatch] = 1
			}
		}
	}
	return features
}

// residualTokens returns the content tokens not covered by a candidate entity.
func residualTokens(c *patterns.Candidate) []types.Token {
	if c.Query == nil {
		return nil
	}
	var out []types.Token
	for _, t := range c.Query.ContentTokens() {
		covered := false
		for _, e := range c.Entities {
			if t.Index >= e.Span.Start && t.Index < e.Span.End {
				covered = true
			}
		}
		if !covered {
			out = append(out, t)
		}
	}
	return out
}

type wordSet map[string]bool

// relationWords splits relation ids such as
// "government.position_held.office_holder" into words.
func relationWords(relations []string) wordSet {
	words := make(wordSet)
	for _, r := range relations {
		for _, w := range strings.FieldsFunc(r, func(r rune) bool { return r == '.' || r == '_' }) {
			words[strings.ToLower(w)] = true
		}
	}
	return words
}

// matches reports whether word equals a relation word or shares a prefix of
// at least four runes with it.
func (s wordSet) matches(word string) bool {
	if s[word] {
		return true
	}
	for w := range s {
		if sharedPrefix(w, word) >= 4 {
			return true
		}
	}
	return false
}

func sharedPrefix(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}

// RelationText renders relations as space separated words for embedding.
func RelationText(relations []string) string {
	var parts []string
	for _, r := range relations {
		segments := strings.Split(r, ".")
		parts = append(parts, strings.ReplaceAll(segments[len(segments)-1], "_", " "))
	}
	return strings.Join(parts, " ")
}
