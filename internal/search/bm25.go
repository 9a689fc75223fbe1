// Package search ranks expertise records against a free-text query with BM25.
//
// Scoring is computed fresh on every call over the records passed in; there
// is no persistent index. Each record is flattened into one document built
// from its user-visible fields, and every field is also kept on its own so
// results can report which fields matched.
package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dyluth/mulch/pkg/expertise"
)

// Params tunes BM25 scoring.
type Params struct {
	K1 float64 // term frequency saturation
	B  float64 // document length normalization, 0 = none, 1 = full
}

// DefaultParams returns k1 = 1.5, b = 0.75.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

// Result is a scored record.
type Result struct {
	Record        expertise.Record
	Score         float64
	MatchedFields []string
}

// Tokenize lowercases text, replaces every rune that is not a letter, number,
// hyphen, underscore or whitespace with a space, and splits on whitespace.
func Tokenize(text string) []string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r), r == '-', r == '_':
			return r
		default:
			return ' '
		}
	}, strings.ToLower(text))
	return strings.Fields(mapped)
}

type field struct {
	name   string
	tokens []string
}

type document struct {
	tokens []string
	fields []field
}

// Fields returns the searchable text of a record by field name, in a fixed
// order. Empty fields are omitted.
func Fields(r expertise.Record) [][2]string {
	var out [][2]string
	add := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			out = append(out, [2]string{name, value})
		}
	}

	switch v := r.(type) {
	case *expertise.Convention:
		add("content", v.Content)
	case *expertise.Pattern:
		add("name", v.Name)
		add("description", v.Description)
		add("files", strings.Join(v.FileList, " "))
	case *expertise.Failure:
		add("description", v.Description)
		add("resolution", v.Resolution)
	case *expertise.Decision:
		add("title", v.Title)
		add("rationale", v.Rationale)
	case *expertise.Reference:
		add("name", v.Name)
		add("description", v.Description)
		add("files", strings.Join(v.FileList, " "))
	case *expertise.Guide:
		add("name", v.Name)
		add("description", v.Description)
	}
	add("tags", strings.Join(r.Base().Tags, " "))
	return out
}

func newDocument(r expertise.Record) document {
	var doc document
	for _, f := range Fields(r) {
		tokens := Tokenize(f[1])
		doc.fields = append(doc.fields, field{name: f[0], tokens: tokens})
		doc.tokens = append(doc.tokens, tokens...)
	}
	return doc
}

// idf computes the smoothed inverse document frequency of every term:
// ln((N - df + 0.5) / (df + 0.5) + 1).
func idf(docs []document) map[string]float64 {
	df := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool, len(d.tokens))
		for _, t := range d.tokens {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	n := float64(len(docs))
	out := make(map[string]float64, len(df))
	for term, freq := range df {
		f := float64(freq)
		out[term] = math.Log((n-f+0.5)/(f+0.5) + 1)
	}
	return out
}

func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func score(query []string, doc document, avgLen float64, weights map[string]float64, p Params) float64 {
	tf := termFrequencies(doc.tokens)
	docLen := float64(len(doc.tokens))

	var total float64
	for _, q := range query {
		freq := float64(tf[q])
		if freq == 0 {
			continue
		}
		norm := 1 - p.B
		if avgLen > 0 {
			norm += p.B * docLen / avgLen
		}
		total += weights[q] * (freq * (p.K1 + 1)) / (freq + p.K1*norm)
	}
	return total
}

func matchedFields(query []string, doc document) []string {
	var names []string
	for _, f := range doc.fields {
		if containsAny(f.tokens, query) {
			names = append(names, f.name)
		}
	}
	return names
}

func containsAny(tokens, query []string) bool {
	for _, t := range tokens {
		for _, q := range query {
			if t == q {
				return true
			}
		}
	}
	return false
}

// Search scores records against query and returns those with a positive
// score, highest first. Ties keep the input order. An empty query or corpus
// yields nil.
func Search(records []expertise.Record, query string, p Params) []Result {
	if len(records) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	docs := make([]document, len(records))
	var totalLen int
	for i, r := range records {
		docs[i] = newDocument(r)
		totalLen += len(docs[i].tokens)
	}
	avgLen := float64(totalLen) / float64(len(docs))
	weights := idf(docs)

	var results []Result
	for i, doc := range docs {
		s := score(queryTokens, doc, avgLen, weights, p)
		if s <= 0 {
			continue
		}
		results = append(results, Result{
			Record:        records[i],
			Score:         s,
			MatchedFields: matchedFields(queryTokens, doc),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Records returns the records of results in rank order.
func Records(results []Result) []expertise.Record {
	out := make([]expertise.Record, len(results))
	for i, r := range results {
		out[i] = r.Record
	}
	return out
}
