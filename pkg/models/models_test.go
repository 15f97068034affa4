package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceTypeAvailable(t *testing.T) {
	tests := []struct {
		source   SourceType
		expected bool
	}{
		{SourceManual, true},
		{SourceAutoGenerated, true},
		{SourceTranslated, true},
		{SourceNotAvailable, false},
		{SourceError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.source.Available())
		})
	}
}

func TestTranscriptSetKeepsRequestOrder(t *testing.T) {
	set := NewTranscriptSet()
	set.Put(TranscriptResult{Language: "mr", Text: "a", Source: SourceManual})
	set.Put(Unavailable("en", SourceNotAvailable))
	set.Put(TranscriptResult{Language: "hi", Text: "b", Source: SourceTranslated})
	set.Put(TranscriptResult{Language: "en", Text: "c", Source: SourceAutoGenerated})

	assert.Equal(t, 3, set.Len())

	got, ok := set.Get("en")
	require.True(t, ok)
	assert.Equal(t, "c", got.Text)

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t,
		`{"mr":{"text":"a","source_type":"manual"},"en":{"text":"c","source_type":"auto_generated"},"hi":{"text":"b","source_type":"translated"}}`,
		string(data))
}

func TestEmptySetsMarshalToEmptyObject(t *testing.T) {
	data, err := json.Marshal(NewTranscriptSet())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	data, err = json.Marshal(&SummarySet{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestAvailability(t *testing.T) {
	a := NewAvailability()
	a.Set("hi", SourceTranslated)
	a.Set("en", SourceError)
	a.Set("hi", SourceManual)

	assert.Equal(t, []string{"hi", "en"}, a.Languages())
	assert.Equal(t, SourceManual, a.Status("hi"))
	assert.Equal(t, SourceNotAvailable, a.Status("fr"))
	assert.Equal(t, map[string]bool{"hi": true, "en": false}, a.Available())

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"hi":"manual","en":"error"}`, string(data))
}

func TestSummarySet(t *testing.T) {
	set := &SummarySet{}
	set.Add(SummaryResult{Language: "hi", Source: SourceNotAvailable})
	set.Add(SummaryResult{Language: "en", Transcript: "t", Extractive: "e", Abstractive: "a", Source: SourceManual})

	r, ok := set.Get("en")
	require.True(t, ok)
	assert.Equal(t, "e", r.Extractive)

	_, ok = set.Get("fr")
	assert.False(t, ok)

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t,
		`{"hi":{"transcript":"","extractive":"","abstractive":"","source_type":"not_available"},"en":{"transcript":"t","extractive":"e","abstractive":"a","source_type":"manual"}}`,
		string(data))
}

func TestDedupeLanguages(t *testing.T) {
	assert.Equal(t, []string{"en", "hi"}, DedupeLanguages([]string{"en", "", "hi", "en"}))
	assert.Empty(t, DedupeLanguages(nil))
}

func TestExportFormatValid(t *testing.T) {
	assert.True(t, ExportDOCX.Valid())
	assert.True(t, ExportTXT.Valid())
	assert.True(t, ExportHTML.Valid())
	assert.False(t, ExportFormat("pdf").Valid())
	assert.False(t, ExportFormat("").Valid())
}
