package faq

import (
	"strings"
	"unicode/utf8"
)

// DefaultThreshold is the normalized score an entry must strictly exceed to
// be returned by Match.
const DefaultThreshold = 0.3

const (
	exactHit   = 1.0
	partialHit = 0.5
	// Tokens at or below this many characters never earn partial credit.
	minPartialTokenLen = 3
)

// Candidate is the score of one entry against one query.
type Candidate struct {
	Entry           Entry
	RawScore        float64
	NormalizedScore float64
}

// Match returns the entry with the highest normalized score strictly above
// threshold. Ties go to the entry that appears first in the catalog.
func (c *Catalog) Match(query string, threshold float64) (Entry, bool) {
	q := newQuery(query)

	var (
		best      Entry
		bestScore float64
		found     bool
	)
	for _, e := range c.entries {
		_, norm := q.score(e)
		if norm > threshold && (!found || norm > bestScore) {
			best, bestScore, found = e, norm, true
		}
	}
	return best, found
}

// Score returns a candidate for every entry, in catalog order.
func (c *Catalog) Score(query string) []Candidate {
	q := newQuery(query)
	out := make([]Candidate, len(c.entries))
	for i, e := range c.entries {
		raw, norm := q.score(e)
		out[i] = Candidate{Entry: e, RawScore: raw, NormalizedScore: norm}
	}
	return out
}

type query struct {
	text   string
	tokens []string
}

func newQuery(s string) query {
	lower := strings.ToLower(s)
	return query{text: lower, tokens: strings.Fields(lower)}
}

// score adds exactHit for every keyword found anywhere in the query text and
// partialHit for every (token, keyword) pair where one contains the other.
// The same keyword can earn both.
func (q query) score(e Entry) (raw, normalized float64) {
	for _, kw := range e.Keywords {
		if strings.Contains(q.text, kw) {
			raw += exactHit
		}
	}

	for _, tok := range q.tokens {
		if utf8.RuneCountInString(tok) <= minPartialTokenLen {
			continue
		}
		for _, kw := range e.Keywords {
			if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
				raw += partialHit
			}
		}
	}

	return raw, raw / float64(max(len(q.tokens), 1))
}
