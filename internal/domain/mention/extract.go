// Package mention turns free-text symptom descriptions into candidate
// evidence for an interview.
package mention

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
)

// StatePresent is the only state the extractor assigns. Negated phrases such
// as "no fever" still produce a present mention.
const StatePresent = "present"

type Mention struct {
	ConceptID     string `json:"concept_id"`
	Name          string `json:"name"`
	MatchedPhrase string `json:"matched_phrase"`
	State         string `json:"state"`
}

type Result struct {
	Mentions  []Mention `json:"mentions"`
	IsObvious bool      `json:"is_obvious"`
}

// ConceptIDs returns the mentioned concept ids in text order.
func (r Result) ConceptIDs() []string {
	ids := make([]string, len(r.Mentions))
	for i, m := range r.Mentions {
		ids[i] = m.ConceptID
	}
	return ids
}

// Extractor is implemented by the local matcher and by model-backed
// extractors. Implementations must only return concept ids known to their
// table.
type Extractor interface {
	Extract(ctx context.Context, text string) (Result, error)
}

// Extract matches text against every concept's name and synonyms,
// case-insensitively and on word boundaries. Each concept is reported at
// most once, using the first of its phrases that matches; mentions are
// ordered by where they occur in the text.
func Extract(text string, table *knowledge.Table) Result {
	lower := strings.ToLower(text)

	type hit struct {
		m   Mention
		pos int
	}
	var hits []hit
	for _, c := range table.Concepts() {
		for _, phrase := range append([]string{c.Name}, c.Synonyms...) {
			pos := indexWord(lower, strings.ToLower(phrase))
			if pos < 0 {
				continue
			}
			hits = append(hits, hit{
				m:   Mention{ConceptID: c.ID, Name: c.Name, MatchedPhrase: phrase, State: StatePresent},
				pos: pos,
			})
			break
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })

	res := Result{Mentions: make([]Mention, len(hits))}
	for i, h := range hits {
		res.Mentions[i] = h.m
	}
	res.IsObvious = len(res.Mentions) > 0
	return res
}

// indexWord returns the byte offset of the first occurrence of phrase in s
// that is not embedded in a longer word, or -1.
func indexWord(s, phrase string) int {
	if phrase == "" {
		return -1
	}
	offset := 0
	for {
		i := strings.Index(s[offset:], phrase)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(phrase)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return start
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Local is the table-backed Extractor.
type Local struct {
	table *knowledge.Table
}

func NewLocal(table *knowledge.Table) *Local {
	return &Local{table: table}
}

func (l *Local) Extract(_ context.Context, text string) (Result, error) {
	return Extract(text, l.table), nil
}
