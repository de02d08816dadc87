// Package intent scores questions against the template registry's keyword
// rules and picks the best-matching query template.
package intent

import (
	"sort"
	"strings"

	"warehouse-askdb/internal/engine/templates"
)

// Candidate is one scored template.
type Candidate struct {
	Template   *templates.Template
	Type       templates.IntentType
	Score      int
	Confidence float64
	Fallback   bool
}

// Classifier ranks templates by keyword score. Selection is deterministic:
// equal-confidence ties break on required-parameter satisfiability, then on
// rule-set size, then on template ID.
type Classifier struct {
	registry      *templates.Registry
	minConfidence float64
}

func NewClassifier(registry *templates.Registry, minConfidence float64) *Classifier {
	return &Classifier{registry: registry, minConfidence: minConfidence}
}

// Classify scores every template against the normalized question and returns
// the winner. When no template reaches the confidence threshold the generic
// fallback is returned with the top score's confidence.
func (c *Classifier) Classify(question string, detected map[templates.Modifier]bool) Candidate {
	ranked := c.Rank(question, detected)
	if len(ranked) == 0 || ranked[0].Confidence < c.minConfidence {
		var conf float64
		if len(ranked) > 0 {
			conf = ranked[0].Confidence
		}
		generic := c.registry.Generic()
		return Candidate{
			Template:   generic,
			Type:       generic.Intent,
			Confidence: conf,
			Fallback:   true,
		}
	}
	return ranked[0]
}

// Rank returns all templates with a nonzero score, best first.
func (c *Classifier) Rank(question string, detected map[templates.Modifier]bool) []Candidate {
	var out []Candidate
	for _, tmpl := range c.registry.All() {
		score := scoreTemplate(tmpl, question)
		if score == 0 {
			continue
		}
		conf := float64(score) / float64(tmpl.MaxScore())
		if conf > 1.0 {
			conf = 1.0
		}
		out = append(out, Candidate{
			Template:   tmpl,
			Type:       tmpl.Intent,
			Score:      score,
			Confidence: conf,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		si, sj := satisfiable(out[i].Template, detected), satisfiable(out[j].Template, detected)
		if si != sj {
			return si
		}
		if len(out[i].Template.Rules) != len(out[j].Template.Rules) {
			return len(out[i].Template.Rules) < len(out[j].Template.Rules)
		}
		return out[i].Template.ID < out[j].Template.ID
	})

	// A template whose required parameters cannot be satisfied must not win
	// even as the sole match.
	filtered := out[:0]
	for _, cand := range out {
		if satisfiable(cand.Template, detected) {
			filtered = append(filtered, cand)
		}
	}
	return filtered
}

func scoreTemplate(tmpl *templates.Template, question string) int {
	score := 0
	for _, rule := range tmpl.Rules {
		if strings.Contains(question, rule.Pattern) {
			score += rule.Weight
		}
	}
	return score
}

func satisfiable(tmpl *templates.Template, detected map[templates.Modifier]bool) bool {
	for _, req := range tmpl.Required {
		if !detected[req] {
			return false
		}
	}
	return true
}
