package biomarker

import (
	"strings"
	"unicode/utf8"

	"github.com/biopulse/biopulse/pkg/fuzzy"
	"github.com/biopulse/biopulse/pkg/translit"
)

// Labels shorter than this (after normalization) are never fuzzy
// matched; short strings produce too many false positives.
const minFuzzyLabelLen = 4

// Match maps a free-form label from a parsed report to a catalog
// entry, or nil when nothing is close enough. Exact normalized
// matches win over fuzzy ones; among fuzzy candidates the smallest
// edit distance wins, ties going to the earlier catalog entry.
func (c *Catalog) Match(label string) *Biomarker {
	norm := normalizeLabel(label)
	if norm == "" {
		return nil
	}
	entries := c.snapshot()

	for _, e := range entries {
		for _, k := range e.keys {
			if k == norm {
				return e.bm
			}
		}
	}

	normLen := utf8.RuneCountInString(norm)
	if normLen < minFuzzyLabelLen {
		return nil
	}
	limit := fuzzy.Threshold(normLen)

	var best *Biomarker
	bestDist := limit + 1
	for _, e := range entries {
		for _, k := range e.keys {
			// Length gap alone can rule a candidate out.
			if diff := utf8.RuneCountInString(k) - normLen; diff > limit+2 || diff < -(limit+2) {
				continue
			}
			if d := fuzzy.Distance(norm, k); d <= limit && d < bestDist {
				best = e.bm
				bestDist = d
			}
		}
	}
	return best
}

var labelPunct = strings.NewReplacer(
	"(", " ", ")", " ", "[", " ", "]", " ",
	"{", " ", "}", " ", ",", " ", ".", " ",
	";", " ", ":", " ", "!", " ", "?", " ",
	"*", " ", "#", " ", "\"", " ", "'", " ",
	"’", " ", "«", " ", "»", " ",
)

// normalizeLabel reduces a biomarker label to its comparison form:
// Latin script, lower case, punctuation stripped, single-spaced.
func normalizeLabel(label string) string {
	s := translit.Latinize(label)
	s = strings.ToLower(s)
	s = labelPunct.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
