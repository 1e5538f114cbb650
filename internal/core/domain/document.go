package domain

// Origin tags which retrieval leg produced a candidate.
type Origin string

const (
	OriginSemantic Origin = "semantic"
	OriginLexical  Origin = "lexical"
)

// ChunkIndexUnknown marks a document whose position within its source page
// was not carried by the retrieval leg that produced it.
const ChunkIndexUnknown = -1

// Document is one indexed chunk of a crawled district page. URL plus
// ChunkIndex is the dedup identity; URL alone when ChunkIndex is unknown.
type Document struct {
	Content    string  `json:"content"`
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Candidate is a document annotated with its retrieval origin. The score is
// origin-local and not comparable across legs.
type Candidate struct {
	Document
	Origin Origin
}

// Source is one provenance entry attached to an answer.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Answer is the final synthesized response with its deduplicated sources.
type Answer struct {
	Text    string      `json:"text"`
	Intent  IntentLabel `json:"intent"`
	Sources []Source    `json:"sources"`
}

// ExactMatch selects identity fields for an authoritative-record lookup.
// Content is the free-text fallback used when URL is empty.
type ExactMatch struct {
	URL        string
	ChunkIndex int
	Content    string
}
