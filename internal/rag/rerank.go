package rag

import (
	"sort"
	"strings"
	"unicode"

	"gilda/internal/storage"
)

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	titleMatchBonus    = float32(0.1)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// rankDocuments orders documents by lexical relevance to query, most relevant first.
// Equal scores keep their input order. The fallback context is truncated from the
// end, so the best candidates must come first.
func rankDocuments(query string, docs []*storage.Document) []*storage.Document {
	type scored struct {
		doc   *storage.Document
		score float32
	}
	items := make([]scored, len(docs))
	for i, doc := range docs {
		items[i] = scored{doc: doc, score: lexicalScore(query, doc.Text, doc.Filename)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	ranked := make([]*storage.Document, len(items))
	for i, item := range items {
		ranked[i] = item.doc
	}
	return ranked
}

// lexicalScore computes a lightweight lexical relevance score for a text relative to a query.
// The score is normalized to remain in a predictable range.
func lexicalScore(query, body, title string) float32 {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	bodyTokens := tokenize(body)
	if len(bodyTokens) == 0 {
		return 0
	}

	freq := make(map[string]int, len(bodyTokens))
	for _, token := range bodyTokens {
		freq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += freq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(bodyTokens)))) * lexicalLengthScale

	if titleTokens := tokenize(title); len(titleTokens) > 0 {
		titleSet := make(map[string]struct{}, len(titleTokens))
		for _, token := range titleTokens {
			titleSet[token] = struct{}{}
		}
		var titleMatches int
		for _, token := range queryTokens {
			if _, ok := titleSet[token]; ok {
				titleMatches++
			}
		}
		score += float32(titleMatches) * titleMatchBonus
	}

	if score > maxLexicalScore {
		return maxLexicalScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
