package transcription

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
)

// minSentenceWords is the number of words a sentence needs after filler
// removal to survive English normalization.
const minSentenceWords = 4

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	bracketRe    = regexp.MustCompile(`\[.*?\]`)
	fillerRe     = regexp.MustCompile(`(?i)\b(um|uh|like|you know)\b`)
	// orphaned punctuation left behind when a filler is removed, e.g. "world, , this"
	spaceBeforePunctRe = regexp.MustCompile(`\s+([,;:.!?])`)
	repeatedCommaRe    = regexp.MustCompile(`,(\s*,)+`)
)

var errNoSegmenter = errors.New("no sentence segmenter configured")

// Segmenter splits text into sentences
type Segmenter interface {
	Segment(text string) ([]string, error)
}

// Coreferencer rewrites text so pronouns are replaced by what they refer to
type Coreferencer interface {
	Resolve(ctx context.Context, text string) (string, error)
}

// PunktSegmenter segments English text with the punkt sentence tokenizer
type PunktSegmenter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSegmenter loads the bundled English punkt model
func NewPunktSegmenter() (*PunktSegmenter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}
	return &PunktSegmenter{tokenizer: tokenizer}, nil
}

// Segment implements Segmenter
func (p *PunktSegmenter) Segment(text string) ([]string, error) {
	var out []string
	for _, s := range p.tokenizer.Tokenize(text) {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// Normalizer cleans transcript text before summarization
type Normalizer struct {
	segmenter Segmenter
	coref     Coreferencer
	logger    *logging.Logger
}

// NewNormalizer creates a normalizer. A nil segmenter makes English
// segmentation fail over to the unsegmented text; a nil coreferencer
// disables reference resolution.
func NewNormalizer(segmenter Segmenter, coref Coreferencer, logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Normalizer{segmenter: segmenter, coref: coref, logger: logger}
}

// Normalize collapses whitespace and strips bracketed annotations. English
// text is additionally segmented, cleared of filler words and short
// sentences, and passed through coreference resolution when available.
func (n *Normalizer) Normalize(ctx context.Context, text, lang string) string {
	text = collapse(bracketRe.ReplaceAllString(collapse(text), ""))
	if lang != "en" {
		return text
	}

	cleaned, err := n.clean(text)
	if err != nil {
		n.logger.WithError(err).Warn("sentence segmentation failed, using unsegmented text")
		return text
	}

	if n.coref == nil || cleaned == "" {
		return cleaned
	}
	resolved, err := n.coref.Resolve(ctx, cleaned)
	if err != nil || strings.TrimSpace(resolved) == "" {
		n.logger.WithError(err).Warn("coreference resolution failed, using cleaned text")
		return cleaned
	}
	return collapse(resolved)
}

func (n *Normalizer) clean(text string) (string, error) {
	if n.segmenter == nil {
		return "", errNoSegmenter
	}
	sents, err := n.segmenter.Segment(text)
	if err != nil {
		return "", err
	}

	kept := make([]string, 0, len(sents))
	for _, s := range sents {
		s = fillerRe.ReplaceAllString(s, "")
		s = repeatedCommaRe.ReplaceAllString(spaceBeforePunctRe.ReplaceAllString(s, "$1"), ",")
		s = strings.TrimLeft(collapse(s), ",;: ")
		if len(strings.Fields(s)) < minSentenceWords {
			continue
		}
		if !strings.ContainsAny(s[len(s)-1:], ".!?") {
			s += "."
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, " "), nil
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
