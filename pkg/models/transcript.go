package models

import (
	"bytes"
	"encoding/json"
)

// SourceType describes where a transcript came from
type SourceType string

// SourceType constants
const (
	SourceManual        SourceType = "manual"
	SourceAutoGenerated SourceType = "auto_generated"
	SourceTranslated    SourceType = "translated"
	SourceNotAvailable  SourceType = "not_available"
	SourceError         SourceType = "error"
)

// Available reports whether the source type carries a usable transcript
func (s SourceType) Available() bool {
	switch s {
	case SourceManual, SourceAutoGenerated, SourceTranslated:
		return true
	}
	return false
}

// TrackKind is the origin of a caption track
type TrackKind string

// TrackKind constants
const (
	TrackManual        TrackKind = "manual"
	TrackAutoGenerated TrackKind = "auto_generated"
)

// TranscriptEntry is one timed caption line
type TranscriptEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TranscriptResult is the resolved transcript for one language.
// Text is empty exactly when Source is not_available or error.
type TranscriptResult struct {
	Language string     `json:"-"`
	Text     string     `json:"text"`
	Source   SourceType `json:"source_type"`
}

// Unavailable returns an empty result with the given status
func Unavailable(lang string, source SourceType) TranscriptResult {
	return TranscriptResult{Language: lang, Source: source}
}

// TranscriptSet holds per-language results in request order
type TranscriptSet struct {
	results []TranscriptResult
	index   map[string]int
}

// NewTranscriptSet creates an empty set
func NewTranscriptSet() *TranscriptSet {
	return &TranscriptSet{index: make(map[string]int)}
}

// Put adds or replaces the result for its language, keeping first-insertion order
func (s *TranscriptSet) Put(r TranscriptResult) {
	if i, ok := s.index[r.Language]; ok {
		s.results[i] = r
		return
	}
	s.index[r.Language] = len(s.results)
	s.results = append(s.results, r)
}

// Get returns the result for lang
func (s *TranscriptSet) Get(lang string) (TranscriptResult, bool) {
	i, ok := s.index[lang]
	if !ok {
		return TranscriptResult{}, false
	}
	return s.results[i], true
}

// Results returns all results in request order
func (s *TranscriptSet) Results() []TranscriptResult {
	out := make([]TranscriptResult, len(s.results))
	copy(out, s.results)
	return out
}

// Len returns the number of languages in the set
func (s *TranscriptSet) Len() int {
	return len(s.results)
}

// MarshalJSON encodes the set as an object keyed by language in request order
func (s *TranscriptSet) MarshalJSON() ([]byte, error) {
	pairs := make([]orderedPair, 0, len(s.results))
	for _, r := range s.results {
		pairs = append(pairs, orderedPair{Key: r.Language, Value: r})
	}
	return marshalOrdered(pairs)
}

// DedupeLanguages drops repeated codes while keeping first-seen order
func DedupeLanguages(langs []string) []string {
	seen := make(map[string]bool, len(langs))
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

type orderedPair struct {
	Key   string
	Value interface{}
}

// marshalOrdered writes a JSON object whose keys keep the slice order
func marshalOrdered(pairs []orderedPair) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
