package models

// SummaryMode selects the summarization strategy
type SummaryMode string

// SummaryMode constants
const (
	SummaryExtractive  SummaryMode = "extractive"
	SummaryAbstractive SummaryMode = "abstractive"
)

// SummaryResult is the per-language summary. All text fields are empty
// together when the transcript was unavailable.
type SummaryResult struct {
	Language    string     `json:"-"`
	Transcript  string     `json:"transcript"`
	Extractive  string     `json:"extractive"`
	Abstractive string     `json:"abstractive"`
	Source      SourceType `json:"source_type"`
}

// SummarySet holds per-language summaries in request order
type SummarySet struct {
	results []SummaryResult
}

// Add appends a summary
func (s *SummarySet) Add(r SummaryResult) {
	s.results = append(s.results, r)
}

// Results returns summaries in request order
func (s *SummarySet) Results() []SummaryResult {
	out := make([]SummaryResult, len(s.results))
	copy(out, s.results)
	return out
}

// Get returns the summary for lang
func (s *SummarySet) Get(lang string) (SummaryResult, bool) {
	for _, r := range s.results {
		if r.Language == lang {
			return r, true
		}
	}
	return SummaryResult{}, false
}

// MarshalJSON encodes the set as an object keyed by language in request order
func (s *SummarySet) MarshalJSON() ([]byte, error) {
	pairs := make([]orderedPair, 0, len(s.results))
	for _, r := range s.results {
		pairs = append(pairs, orderedPair{Key: r.Language, Value: r})
	}
	return marshalOrdered(pairs)
}
