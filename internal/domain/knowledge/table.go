// Package knowledge holds the local concept and condition table used by the
// mention extractor and the fallback reasoner.
package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

type Seriousness string

const (
	SeriousnessNone      Seriousness = ""
	SeriousnessSerious   Seriousness = "serious"
	SeriousnessEmergency Seriousness = "emergency"
)

// Severity is the display/triage band of a condition.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

const (
	KindSymptom    = "symptom"
	KindRiskFactor = "risk_factor"
)

type Concept struct {
	ID          string      `mapstructure:"id" json:"id"`
	Name        string      `mapstructure:"name" json:"name"`
	Kind        string      `mapstructure:"kind" json:"kind"`
	Synonyms    []string    `mapstructure:"synonyms" json:"synonyms,omitempty"`
	Cluster     string      `mapstructure:"cluster" json:"cluster,omitempty"`
	Seriousness Seriousness `mapstructure:"seriousness" json:"seriousness,omitempty"`
	Question    string      `mapstructure:"question" json:"question,omitempty"`
}

// IsSerious reports whether a present finding of this concept should
// escalate triage.
func (c Concept) IsSerious() bool {
	return c.Seriousness == SeriousnessSerious || c.Seriousness == SeriousnessEmergency
}

type Weight struct {
	ConceptID string  `mapstructure:"concept_id" json:"concept_id"`
	Weight    float64 `mapstructure:"weight" json:"weight"`
}

type Condition struct {
	ID         string   `mapstructure:"id" json:"id"`
	Name       string   `mapstructure:"name" json:"name"`
	CommonName string   `mapstructure:"common_name" json:"common_name,omitempty"`
	Severity   Severity `mapstructure:"severity" json:"severity"`
	Acuteness  string   `mapstructure:"acuteness" json:"acuteness,omitempty"`
	Prevalence string   `mapstructure:"prevalence" json:"prevalence,omitempty"`
	Weights    []Weight `mapstructure:"weights" json:"weights"`
}

// Match is a concept search hit.
type Match struct {
	ConceptID string
	Label     string
	Kind      string
}

// Table is an immutable, indexed concept/condition table. Slice order is
// significant: it decides question order and probability tie-breaks.
type Table struct {
	concepts   []Concept
	conditions []Condition
	conceptIdx map[string]int
}

// NewTable validates and indexes the given concepts and conditions.
func NewTable(concepts []Concept, conditions []Condition) (*Table, error) {
	t := &Table{
		concepts:   append([]Concept(nil), concepts...),
		conditions: append([]Condition(nil), conditions...),
		conceptIdx: make(map[string]int, len(concepts)),
	}
	for i, c := range t.concepts {
		if c.ID == "" {
			return nil, fmt.Errorf("concept %d: id is required", i)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("concept %s: name is required", c.ID)
		}
		if _, dup := t.conceptIdx[c.ID]; dup {
			return nil, fmt.Errorf("concept %s: duplicate id", c.ID)
		}
		switch c.Seriousness {
		case SeriousnessNone, SeriousnessSerious, SeriousnessEmergency:
		default:
			return nil, fmt.Errorf("concept %s: unknown seriousness %q", c.ID, c.Seriousness)
		}
		if c.Kind == "" {
			t.concepts[i].Kind = KindSymptom
		}
		t.conceptIdx[c.ID] = i
	}

	seen := make(map[string]bool, len(t.conditions))
	for _, cond := range t.conditions {
		if cond.ID == "" {
			return nil, fmt.Errorf("condition %q: id is required", cond.Name)
		}
		if seen[cond.ID] {
			return nil, fmt.Errorf("condition %s: duplicate id", cond.ID)
		}
		seen[cond.ID] = true
		switch cond.Severity {
		case SeverityMild, SeverityModerate, SeveritySevere:
		default:
			return nil, fmt.Errorf("condition %s: unknown severity %q", cond.ID, cond.Severity)
		}
		for _, w := range cond.Weights {
			if _, ok := t.conceptIdx[w.ConceptID]; !ok {
				return nil, fmt.Errorf("condition %s: weight references unknown concept %s", cond.ID, w.ConceptID)
			}
			if w.Weight <= 0 || w.Weight > 1 {
				return nil, fmt.Errorf("condition %s: weight for %s must be in (0,1]", cond.ID, w.ConceptID)
			}
		}
	}
	return t, nil
}

// MustTable is NewTable for tables known to be valid at compile time.
func MustTable(concepts []Concept, conditions []Condition) *Table {
	t, err := NewTable(concepts, conditions)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Concepts() []Concept {
	return append([]Concept(nil), t.concepts...)
}

func (t *Table) Conditions() []Condition {
	return append([]Condition(nil), t.conditions...)
}

func (t *Table) Concept(id string) (Concept, bool) {
	i, ok := t.conceptIdx[id]
	if !ok {
		return Concept{}, false
	}
	return t.concepts[i], true
}

// Search matches phrase case-insensitively against concept names and
// synonyms. Name prefixes rank first, then synonym or word prefixes, then
// plain substrings; table order breaks ties.
func (t *Table) Search(phrase string, limit int) []Match {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	type hit struct {
		rank int
		pos  int
	}
	var hits []hit
	for i, c := range t.concepts {
		if r := matchRank(c, phrase); r >= 0 {
			hits = append(hits, hit{rank: r, pos: i})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].rank < hits[b].rank })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Match, len(hits))
	for i, h := range hits {
		c := t.concepts[h.pos]
		out[i] = Match{ConceptID: c.ID, Label: c.Name, Kind: c.Kind}
	}
	return out
}

func matchRank(c Concept, phrase string) int {
	name := strings.ToLower(c.Name)
	if strings.HasPrefix(name, phrase) {
		return 0
	}
	rank := -1
	for _, candidate := range append([]string{name}, c.Synonyms...) {
		candidate = strings.ToLower(candidate)
		switch {
		case strings.HasPrefix(candidate, phrase) || strings.Contains(candidate, " "+phrase):
			return 1
		case strings.Contains(candidate, phrase):
			rank = 2
		}
	}
	return rank
}

// Cluster returns the symptom cluster of a concept, or "" when the concept is
// unknown or unclustered.
func (t *Table) Cluster(conceptID string) string {
	c, _ := t.Concept(conceptID)
	return c.Cluster
}
