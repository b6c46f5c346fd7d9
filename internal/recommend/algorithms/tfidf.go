// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

// Package algorithms implements the numeric parts of the recommendation
// model: TF-IDF term weighting, cosine similarity and score normalization.
//
// The TF-IDF variant is the common "smooth idf" one:
//
//	tf(t, d)  = raw count of t in d
//	idf(t)    = ln((1 + n) / (1 + df(t))) + 1
//	tfidf     = tf * idf, each row scaled to unit L2 norm
//
// Documents are lowercased and split into runs of two or more letters,
// digits or underscores. Vocabulary order is lexical, so fitting the same
// documents always yields the same columns.
//
// Everything here is pure and allocation-bounded by the input; types are
// immutable once returned and safe for concurrent reads.
package algorithms

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyVocabulary is returned when no document contains a single term.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain no terms")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize lowercases doc and returns its terms in order of appearance.
func Tokenize(doc string) []string {
	return tokenPattern.FindAllString(strings.ToLower(doc), -1)
}

// SparseVector is a row of the term-weight matrix. Indices are ascending.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Dot returns the inner product of two sparse vectors.
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the L2 norm.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Vectorizer is a fitted TF-IDF model. Terms[i] has weight IDF[i].
type Vectorizer struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`

	index map[string]int
}

// Fit learns the vocabulary and idf weights of docs.
func Fit(docs []string) (*Vectorizer, error) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range Tokenize(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	v := &Vectorizer{Terms: terms, IDF: idf}
	v.buildIndex()
	return v, nil
}

// FitTransform fits docs and returns their L2-normalized rows.
func FitTransform(docs []string) (*Vectorizer, []SparseVector, error) {
	v, err := Fit(docs)
	if err != nil {
		return nil, nil, err
	}
	return v, v.TransformAll(docs), nil
}

// Restore rebuilds the term lookup of a decoded vectorizer. It reports
// false when Terms and IDF disagree in length or a term repeats.
func (v *Vectorizer) Restore() bool {
	if len(v.Terms) != len(v.IDF) {
		return false
	}
	v.buildIndex()
	return len(v.index) == len(v.Terms)
}

func (v *Vectorizer) buildIndex() {
	v.index = make(map[string]int, len(v.Terms))
	for i, term := range v.Terms {
		v.index[term] = i
	}
}

// Transform maps doc onto the fitted vocabulary. Unknown terms are dropped;
// a document without known terms yields the zero vector.
func (v *Vectorizer) Transform(doc string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range Tokenize(doc) {
		if idx, ok := v.index[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := SparseVector{Indices: indices, Values: make([]float64, len(indices))}
	for i, idx := range indices {
		out.Values[i] = counts[idx] * v.IDF[idx]
	}

	if norm := out.Norm(); norm > 0 {
		for i := range out.Values {
			out.Values[i] /= norm
		}
	}
	return out
}

// TransformAll transforms every document.
func (v *Vectorizer) TransformAll(docs []string) []SparseVector {
	rows := make([]SparseVector, len(docs))
	for i, doc := range docs {
		rows[i] = v.Transform(doc)
	}
	return rows
}
