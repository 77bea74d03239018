// Copyright (C) 2026 Bering Labs (oss@beringlabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package index

import (
	"sort"
	"strings"
	"unicode"

	"github.com/beringlabs/bering/services/analysis/ast"
)

// SimilarName pairs a symbol name with its similarity to the query.
type SimilarName struct {
	Name string `json:"name"`

	// Similarity is the character-overlap ratio in [0, 1]: shared
	// distinct characters divided by the longer name's distinct count.
	// A cheap proxy for edit distance, good enough for naming-drift
	// heuristics.
	Similarity float64 `json:"similarity"`
}

// FindSimilarNames returns distinct symbol names whose character-overlap
// ratio with base meets the threshold, excluding base itself, sorted by
// descending similarity then name.
func (idx *SymbolIndex) FindSimilarNames(base string, threshold float64) []SimilarName {
	idx.mu.RLock()
	names := make([]string, 0, len(idx.byName))
	for name := range idx.byName {
		names = append(names, name)
	}
	idx.mu.RUnlock()

	var out []SimilarName
	for _, name := range names {
		if name == base {
			continue
		}
		if sim := overlapRatio(base, name); sim >= threshold {
			out = append(out, SimilarName{Name: name, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// overlapRatio is shared distinct characters over the longer name's
// distinct character count. Case-insensitive.
func overlapRatio(a, b string) float64 {
	setA := charSet(a)
	setB := charSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	longer := len(setA)
	if len(setB) > longer {
		longer = len(setB)
	}
	shared := 0
	for c := range setA {
		if setB[c] {
			shared++
		}
	}
	return float64(shared) / float64(longer)
}

func charSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range strings.ToLower(s) {
		set[r] = true
	}
	return set
}

// NounPhraseKey groups symbols acting on the same concept.
type NounPhraseKey struct {
	Phrase string         `json:"phrase"`
	Kind   ast.SymbolKind `json:"kind"`
}

// NounPhraseGroup is one group of symbols sharing a noun phrase.
type NounPhraseGroup struct {
	Key     NounPhraseKey `json:"key"`
	Symbols []*ast.Symbol `json:"symbols"`

	// Verbs lists the distinct leading verbs seen in the group, sorted.
	// More than one verb over the same noun phrase suggests naming
	// drift (getUser vs fetchUser).
	Verbs []string `json:"verbs"`
}

// GroupByNounPhrase tokenizes each symbol name (camelCase, PascalCase
// and snake_case aware), checks whether the first token is a known verb,
// and groups the remaining tokens as a noun phrase keyed by
// (phrase, kind).
//
// Inputs:
//
//	verbSynonyms - maps a verb to its canonical form ("fetch" -> "get").
//	               Keys define the known-verb set.
//
// Outputs:
//
//	Groups with at least one symbol, sorted by phrase then kind.
func (idx *SymbolIndex) GroupByNounPhrase(verbSynonyms map[string]string) []NounPhraseGroup {
	idx.mu.RLock()
	symbols := copySlice(idx.all)
	idx.mu.RUnlock()

	type entry struct {
		symbols []*ast.Symbol
		verbs   map[string]bool
	}
	groups := make(map[NounPhraseKey]*entry)

	for _, sym := range symbols {
		tokens := TokenizeIdentifier(sym.Name)
		if len(tokens) < 2 {
			continue
		}
		verb := tokens[0]
		if _, known := verbSynonyms[verb]; !known {
			continue
		}
		key := NounPhraseKey{
			Phrase: strings.Join(tokens[1:], " "),
			Kind:   sym.Kind,
		}
		e := groups[key]
		if e == nil {
			e = &entry{verbs: make(map[string]bool)}
			groups[key] = e
		}
		e.symbols = append(e.symbols, sym)
		e.verbs[verb] = true
	}

	out := make([]NounPhraseGroup, 0, len(groups))
	for key, e := range groups {
		g := NounPhraseGroup{Key: key, Symbols: e.symbols}
		for v := range e.verbs {
			g.Verbs = append(g.Verbs, v)
		}
		sort.Strings(g.Verbs)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Phrase != out[j].Key.Phrase {
			return out[i].Key.Phrase < out[j].Key.Phrase
		}
		return out[i].Key.Kind < out[j].Key.Kind
	})
	return out
}

// TokenizeIdentifier splits an identifier into lowercase word tokens,
// handling camelCase, PascalCase, snake_case and digit boundaries.
//
// Examples:
//
//	"getUserName" -> ["get", "user", "name"]
//	"HTTPServer"  -> ["http", "server"]
//	"parse_json2" -> ["parse", "json2"]
func TokenizeIdentifier(name string) []string {
	var tokens []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = nil
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// Boundary before an upper rune, except inside an acronym
			// run ("HTTPServer" splits before "Server", not inside
			// "HTTP").
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !prevUpper || nextLower {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return tokens
}

// DefaultVerbSynonyms is a reasonable starter set for
// GroupByNounPhrase.
var DefaultVerbSynonyms = map[string]string{
	"get": "get", "fetch": "get", "read": "get", "load": "get", "find": "get",
	"retrieve": "get", "lookup": "get",
	"set": "set", "update": "set", "write": "set", "store": "set", "save": "set",
	"put": "set", "assign": "set",
	"create": "create", "make": "create", "build": "create", "new": "create",
	"init": "create", "generate": "create",
	"delete": "delete", "remove": "delete", "drop": "delete", "clear": "delete",
	"destroy": "delete",
	"is": "check", "has": "check", "can": "check", "should": "check",
	"check": "check", "validate": "check", "verify": "check",
}
