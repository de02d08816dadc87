// Package conditions extracts query modifiers from questions and turns them
// into parameterized predicate fragments for the SQL assembler.
package conditions

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"
)

// GRNMode says whether GRN pallets are selected, excluded, or not mentioned.
type GRNMode int

const (
	GRNNone GRNMode = iota
	GRNInclude
	GRNExclude
)

// Modifiers holds everything the builder could extract from one question.
type Modifiers struct {
	ProductCode  string
	PalletNumber string
	Location     string
	OrderRef     string
	OperatorID   string
	Supplier     string
	GRN          GRNMode
	Threshold    int
	ThresholdOp  string // "<" or ">"
	HasThreshold bool
	Limit        int
	HasLimit     bool
}

// Present reports which modifiers were detected, for template tie-breaking.
func (m Modifiers) Present() map[templates.Modifier]bool {
	out := map[templates.Modifier]bool{}
	if m.ProductCode != "" {
		out[templates.ModifierProduct] = true
	}
	if m.PalletNumber != "" {
		out[templates.ModifierPallet] = true
	}
	if m.Location != "" {
		out[templates.ModifierLocation] = true
	}
	if m.OrderRef != "" {
		out[templates.ModifierOrderRef] = true
	}
	if m.OperatorID != "" {
		out[templates.ModifierOperator] = true
	}
	if m.Supplier != "" {
		out[templates.ModifierSupplier] = true
	}
	if m.GRN != GRNNone {
		out[templates.ModifierGRN] = true
	}
	if m.HasThreshold {
		out[templates.ModifierThreshold] = true
	}
	if m.HasLimit {
		out[templates.ModifierLimit] = true
	}
	return out
}

// Condition is one predicate fragment. The fragment contains exactly one "?"
// marker per bound value; the assembler renumbers markers to $n placeholders.
type Condition struct {
	Fragment string
	Values   []interface{}
}

// Set is the ordered collection of predicate fragments for one query.
type Set struct {
	Conditions []Condition
}

func (s *Set) add(fragment string, values ...interface{}) {
	s.Conditions = append(s.Conditions, Condition{Fragment: fragment, Values: values})
}

// Fingerprint renders the set into a stable string for cache keying. Fragments
// are sorted so equivalent questions with different phrasing order hash alike.
func (s *Set) Fingerprint() string {
	parts := make([]string, 0, len(s.Conditions))
	for _, c := range s.Conditions {
		parts = append(parts, fmt.Sprintf("%s|%v", c.Fragment, c.Values))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

var (
	grnKeywordPattern     = regexp.MustCompile(`\bgrn\b|收貨|material grn`)
	grnExclusionPattern   = regexp.MustCompile(`\bexclud\w*\b|\bwithout\b|\bnon[- ]?grn\b|排除|不包括|唔包括|非grn`)
	thresholdBelowPattern = regexp.MustCompile(`(?:below|under|less than|fewer than|低於|少於)\s*(\d+)`)
	thresholdAbovePattern = regexp.MustCompile(`(?:above|over|more than|greater than|at least|高於|多於)\s*(\d+)`)
	limitPattern          = regexp.MustCompile(`(?:top|first|limit|頭|首)\s*(\d+)`)
	operatorPattern       = regexp.MustCompile(`(?:user|operator|clock number|員工)\s*#?(\d{1,6})\b`)
	orderRefPattern       = regexp.MustCompile(`(?:order|訂單)\s*#?(\d{4,10})\b`)
	supplierPattern       = regexp.MustCompile(`(?:supplier|供應商)(?:\s+code)?\s*#?([a-z0-9]{2,10})\b`)
)

// Words that follow "supplier" in ordinary phrasing and must not be taken as
// a supplier code.
var supplierStopwords = map[string]bool{
	"info": true, "information": true, "detail": true, "details": true,
	"name": true, "names": true, "list": true, "record": true, "records": true,
	"for": true, "of": true, "is": true, "did": true, "delivered": true,
}

// Builder detects modifiers in normalized questions and builds condition sets
// against a chosen template.
type Builder struct {
	kb       *knowledge.Base
	maxLimit int
}

func NewBuilder(kb *knowledge.Base, maxLimit int) *Builder {
	return &Builder{kb: kb, maxLimit: maxLimit}
}

// Detect extracts all recognizable modifiers from a normalized question.
func (b *Builder) Detect(question string) Modifiers {
	var m Modifiers

	m.PalletNumber = b.kb.FindPalletNumber(question)
	// Strip pallet numbers before the product-code scan so the serial digits
	// are not mistaken for a code.
	scrubbed := question
	if m.PalletNumber != "" {
		scrubbed = strings.ReplaceAll(scrubbed, m.PalletNumber, " ")
	}
	m.ProductCode = b.kb.FindProductCode(scrubbed)

	if loc, ok := b.kb.FindLocation(question); ok {
		m.Location = loc
	}

	if grnKeywordPattern.MatchString(question) {
		if grnExclusionPattern.MatchString(question) {
			m.GRN = GRNExclude
		} else {
			m.GRN = GRNInclude
		}
	}

	if match := thresholdBelowPattern.FindStringSubmatch(question); match != nil {
		if v, err := strconv.Atoi(match[1]); err == nil {
			m.Threshold, m.ThresholdOp, m.HasThreshold = v, "<", true
		}
	} else if match := thresholdAbovePattern.FindStringSubmatch(question); match != nil {
		if v, err := strconv.Atoi(match[1]); err == nil {
			m.Threshold, m.ThresholdOp, m.HasThreshold = v, ">", true
		}
	}

	if match := limitPattern.FindStringSubmatch(question); match != nil {
		if v, err := strconv.Atoi(match[1]); err == nil && v > 0 {
			if v > b.maxLimit {
				v = b.maxLimit
			}
			m.Limit, m.HasLimit = v, true
		}
	}

	if match := operatorPattern.FindStringSubmatch(question); match != nil {
		m.OperatorID = match[1]
	}
	if match := orderRefPattern.FindStringSubmatch(question); match != nil {
		m.OrderRef = match[1]
	}
	if match := supplierPattern.FindStringSubmatch(question); match != nil && !supplierStopwords[match[1]] {
		m.Supplier = strings.ToUpper(match[1])
	}

	return m
}

// Build translates the detected modifiers and the resolved date range into
// predicate fragments for the given template. Modifiers the template does not
// bind are skipped; they may still shape answer composition.
func (b *Builder) Build(tmpl *templates.Template, m Modifiers, rng *timeframe.Range) *Set {
	set := &Set{}

	if rng != nil && tmpl.DateColumn != "" {
		set.add(tmpl.DateColumn+" >= ?", rng.Start)
		set.add(tmpl.DateColumn+" < ?", rng.End)
	}

	if bind, ok := tmpl.Binds[templates.ModifierProduct]; ok && m.ProductCode != "" {
		set.add(bind.Column+" = ?", m.ProductCode)
	}
	if bind, ok := tmpl.Binds[templates.ModifierPallet]; ok && m.PalletNumber != "" {
		set.add(bind.Column+" = ?", m.PalletNumber)
	}
	if bind, ok := tmpl.Binds[templates.ModifierLocation]; ok && m.Location != "" {
		set.add(bind.Column+" = ?", m.Location)
	}
	if bind, ok := tmpl.Binds[templates.ModifierOrderRef]; ok && m.OrderRef != "" {
		set.add(bind.Column+" = ?", m.OrderRef)
	}
	if bind, ok := tmpl.Binds[templates.ModifierOperator]; ok && m.OperatorID != "" {
		set.add(bind.Column+" = ?", m.OperatorID)
	}
	if bind, ok := tmpl.Binds[templates.ModifierSupplier]; ok && m.Supplier != "" {
		set.add(bind.Column+" = ?", m.Supplier)
	}

	if bind, ok := tmpl.Binds[templates.ModifierGRN]; ok && m.GRN != GRNNone {
		op := bind.Op
		if op == "" {
			op = "LIKE"
		}
		if m.GRN == GRNExclude {
			op = "NOT " + op
		}
		set.add(fmt.Sprintf("%s %s ?", bind.Column, op), knowledge.GRNMarker)
	}

	if bind, ok := tmpl.Binds[templates.ModifierThreshold]; ok && m.HasThreshold {
		op := m.ThresholdOp
		if op == "" {
			op = bind.Op
		}
		set.add(fmt.Sprintf("%s %s ?", bind.Column, op), m.Threshold)
	}

	return set
}
