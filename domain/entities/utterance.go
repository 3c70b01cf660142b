package entities

import (
	"errors"

	"github.com/artranslate/relay/internal/protocol"
)

// Utterance is one bounded unit of source text ready for translation. It is
// created by the segmenter when a boundary is detected, consumed exactly
// once by the transport session, and never mutated after creation.
type Utterance struct {
	// Text holds one or more source strings batched into a single request.
	Text []string
	// TargetLanguage is the ISO code of the language to translate into.
	TargetLanguage string
	// SourceLanguage is optional; empty means upstream auto-detection.
	SourceLanguage string
}

// NewUtterance builds a validated utterance.
func NewUtterance(text []string, target string) (*Utterance, error) {
	u := &Utterance{Text: text, TargetLanguage: target}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the utterance invariants.
func (u *Utterance) Validate() error {
	if len(u.Text) == 0 {
		return errors.New("utterance text is empty")
	}
	if u.TargetLanguage == "" {
		return errors.New("target language is required")
	}
	return nil
}

// Request converts the utterance into its wire representation.
func (u *Utterance) Request() *protocol.TranslationRequest {
	req := protocol.NewRequest(u.Text, u.TargetLanguage)
	if u.SourceLanguage != "" {
		source := u.SourceLanguage
		req.Source = &source
	}
	return req
}
