package upstream

import (
	"context"
	"sync"

	"github.com/artranslate/relay/internal/protocol"
)

// MockTranslator is a Translator for tests. When TranslateFunc is nil it
// echoes each input string back as its own translation.
type MockTranslator struct {
	TranslateFunc func(ctx context.Context, req *protocol.TranslationRequest) (*protocol.TranslationResponse, error)

	mu    sync.Mutex
	calls int
}

var _ Translator = (*MockTranslator)(nil)

// Translate records the call and delegates to TranslateFunc.
func (m *MockTranslator) Translate(ctx context.Context, req *protocol.TranslationRequest) (*protocol.TranslationResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, req)
	}

	translations := make([]protocol.Translation, len(req.Q))
	for i, text := range req.Q {
		translations[i] = protocol.Translation{TranslatedText: text}
	}
	return &protocol.TranslationResponse{
		Data: protocol.TranslationsData{Translations: translations},
	}, nil
}

// Calls returns how many times Translate was invoked.
func (m *MockTranslator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
