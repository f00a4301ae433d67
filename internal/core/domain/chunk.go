package domain

// SourceType identifies which kind of Nobel speech a chunk was cut from.
type SourceType string

const (
	SourceLecture          SourceType = "lecture"
	SourceCeremonySpeech   SourceType = "ceremony_speech"
	SourceAcceptanceSpeech SourceType = "acceptance_speech"
)

// FilteringReason records how a chunk survived threshold filtering.
type FilteringReason string

const (
	ReasonPassedThreshold FilteringReason = "passed_threshold"
	ReasonFallbackRelaxed FilteringReason = "fallback_relaxed"
	ReasonWildcard        FilteringReason = "wildcard"
)

// Chunk is a retrievable unit of speech text with its award metadata.
// Chunks are write-once: built by the ingestion pipeline, read at query time.
type Chunk struct {
	ID          string     `json:"chunk_id"`
	Text        string     `json:"text"`
	Laureate    string     `json:"laureate"`
	YearAwarded int        `json:"year_awarded"`
	SourceType  SourceType `json:"source_type"`
	Category    string     `json:"category,omitempty"`
	Country     string     `json:"country,omitempty"`
	Gender      string     `json:"gender,omitempty"`
}

// RawResult is what a search backend returns before any boosting or
// threshold filtering has been applied.
type RawResult struct {
	Chunk
	Score float64 `json:"score"`
}

// ScoredChunk is a chunk after boosting, merging and fallback filtering.
// Created per query, never persisted.
type ScoredChunk struct {
	Chunk
	Score           float64         `json:"score"`
	FilteringReason FilteringReason `json:"filtering_reason"`
	BoostFactor     float64         `json:"boost_factor,omitempty"`
	SourceTerm      string          `json:"source_term,omitempty"`
	TermWeight      float64         `json:"term_weight,omitempty"`
}

// Citation is the subset of a scored chunk safe to expose downstream for
// display; internal filtering metadata stays out of answer payloads.
type Citation struct {
	ChunkID     string     `json:"chunk_id"`
	Text        string     `json:"text"`
	Laureate    string     `json:"laureate"`
	YearAwarded int        `json:"year_awarded"`
	SourceType  SourceType `json:"source_type"`
	Score       float64    `json:"score"`
}

// Citation strips a scored chunk down to the fields downstream answer
// construction is allowed to see.
func (c ScoredChunk) Citation() Citation {
	return Citation{
		ChunkID:     c.ID,
		Text:        c.Text,
		Laureate:    c.Laureate,
		YearAwarded: c.YearAwarded,
		SourceType:  c.SourceType,
		Score:       c.Score,
	}
}

// SearchFilter restricts retrieval to a metadata subset. Zero values mean
// no restriction on that field.
type SearchFilter struct {
	Laureate    string     `json:"laureate,omitempty"`
	SourceType  SourceType `json:"source_type,omitempty"`
	YearAwarded int        `json:"year_awarded,omitempty"`
}

func (f SearchFilter) IsZero() bool {
	return f.Laureate == "" && f.SourceType == "" && f.YearAwarded == 0
}
