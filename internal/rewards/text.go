package rewards

import (
	"strings"
	"unicode"

	"gonum.org/v1/gonum/mat"
)

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// termVectors builds bag-of-words term frequency vectors over the shared
// vocabulary of ref and docs. Row i of the matrix belongs to docs[i].
func termVectors(ref string, docs []string) (*mat.Dense, []float64) {
	vocab := make(map[string]int)
	index := func(tokens []string) {
		for _, tok := range tokens {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
		}
	}

	refTokens := tokenize(ref)
	index(refTokens)
	docTokens := make([][]string, len(docs))
	for i, d := range docs {
		docTokens[i] = tokenize(d)
		index(docTokens[i])
	}

	cols := len(vocab)
	if cols == 0 || len(docs) == 0 {
		return nil, nil
	}

	refVec := make([]float64, cols)
	for _, tok := range refTokens {
		refVec[vocab[tok]]++
	}

	m := mat.NewDense(len(docs), cols, nil)
	for i, tokens := range docTokens {
		for _, tok := range tokens {
			j := vocab[tok]
			m.Set(i, j, m.At(i, j)+1)
		}
	}
	return m, refVec
}
