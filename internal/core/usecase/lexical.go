package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// Okapi BM25 parameters. Negative IDF terms (present in more than half the
// corpus) are floored at bm25Epsilon times the average IDF instead of being
// allowed to penalize a match.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

type scoredDoc struct {
	Index int
	Score float64
}

// bm25Index is the in-memory lexical index over a corpus snapshot. Documents
// are tokenized by whitespace splitting of their content at build time; the
// index is rebuilt only when the snapshot refreshes.
type bm25Index struct {
	docs     []domain.Document
	termFreq []map[string]int
	docLen   []int
	avgLen   float64
	idf      map[string]float64
}

func newBM25Index(docs []domain.Document) *bm25Index {
	idx := &bm25Index{
		docs:     docs,
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		idf:      make(map[string]float64),
	}
	if len(docs) == 0 {
		return idx
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range docs {
		tokens := strings.Fields(doc.Content)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for term := range tf {
			docFreq[term]++
		}
		idx.termFreq[i] = tf
		idx.docLen[i] = len(tokens)
		totalLen += len(tokens)
	}
	idx.avgLen = float64(totalLen) / float64(len(docs))

	n := float64(len(docs))
	idfSum := 0.0
	var negative []string
	for term, df := range docFreq {
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		idx.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}
	averageIDF := idfSum / float64(len(idx.idf))
	floor := bm25Epsilon * averageIDF
	for _, term := range negative {
		idx.idf[term] = floor
	}
	return idx
}

func (idx *bm25Index) Size() int { return len(idx.docs) }

func (idx *bm25Index) Document(i int) domain.Document { return idx.docs[i] }

// Score ranks the whole snapshot against the keyword term bag and returns the
// topK document indices in descending score order, ties broken by corpus
// position. An empty corpus yields an empty result.
func (idx *bm25Index) Score(keywords []string, topK int) []scoredDoc {
	if len(idx.docs) == 0 || topK <= 0 {
		return nil
	}

	scored := make([]scoredDoc, len(idx.docs))
	for i := range idx.docs {
		norm := bm25K1 * (1 - bm25B + bm25B*float64(idx.docLen[i])/idx.avgLen)
		score := 0.0
		for _, keyword := range keywords {
			tf := float64(idx.termFreq[i][keyword])
			if tf == 0 {
				continue
			}
			score += idx.idf[keyword] * tf * (bm25K1 + 1) / (tf + norm)
		}
		scored[i] = scoredDoc{Index: i, Score: score}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
