package assistant

import (
	"context"
	"fmt"
)

const coreferencePrompt = `Rewrite the following transcript so that every pronoun is replaced by the noun phrase it refers to.
Do not add, remove or reorder sentences. Reply with the rewritten transcript only.

Transcript:
%s`

// Coreference resolves pronouns in English transcripts using a general model
type Coreference struct {
	gen   Generator
	model string
}

// NewCoreference creates a coreference resolver
func NewCoreference(gen Generator, model string) *Coreference {
	return &Coreference{gen: gen, model: model}
}

// Resolve returns text with pronouns replaced by their referents
func (c *Coreference) Resolve(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	resolved, err := c.gen.Generate(ctx, c.model, fmt.Sprintf(coreferencePrompt, text))
	if err != nil {
		return "", fmt.Errorf("coreference resolution failed: %w", err)
	}
	return resolved, nil
}
