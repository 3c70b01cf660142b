package pipeline

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/artranslate/relay/domain/entities"
	"github.com/artranslate/relay/internal/protocol"
)

// fakeSender answers each utterance from a function, standing in for a
// transport session.
type fakeSender struct {
	sendFunc func(u *entities.Utterance) (*protocol.TranslationResponse, error)
}

func (f *fakeSender) Send(u *entities.Utterance) (*protocol.TranslationResponse, error) {
	return f.sendFunc(u)
}

func echoSender(suffix string) *fakeSender {
	return &fakeSender{sendFunc: func(u *entities.Utterance) (*protocol.TranslationResponse, error) {
		translations := make([]protocol.Translation, len(u.Text))
		for i, text := range u.Text {
			translations[i] = protocol.Translation{TranslatedText: text + suffix}
		}
		return &protocol.TranslationResponse{
			Data: protocol.TranslationsData{Translations: translations},
		}, nil
	}}
}

func mustUtterance(t *testing.T, texts ...string) *entities.Utterance {
	t.Helper()
	utterance, err := entities.NewUtterance(texts, "ko")
	if err != nil {
		t.Fatal(err)
	}
	return utterance
}

func TestPipelineDeliversInOrder(t *testing.T) {
	sink := NewMemorySink()
	p := New(echoSender("-ko"), sink, 4, zap.NewNop())
	p.Start()

	for _, text := range []string{"one", "two", "three"} {
		if err := p.Submit(mustUtterance(t, text)); err != nil {
			t.Fatalf("Submit(%q) error = %v", text, err)
		}
	}
	p.Stop()

	results := sink.Results()
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"one-ko", "two-ko", "three-ko"} {
		if results[i].Translated[0] != want {
			t.Errorf("Result %d = %q, want %q", i, results[i].Translated[0], want)
		}
	}
}

func TestFailedUtteranceReachesSinkAndLoopContinues(t *testing.T) {
	sendErr := errors.New("relay unreachable")
	sender := &fakeSender{sendFunc: func(u *entities.Utterance) (*protocol.TranslationResponse, error) {
		if u.Text[0] == "bad" {
			return nil, sendErr
		}
		return echoSender("-ok").Send(u)
	}}

	sink := NewMemorySink()
	p := New(sender, sink, 4, zap.NewNop())
	p.Start()

	p.Submit(mustUtterance(t, "bad"))
	p.Submit(mustUtterance(t, "good"))
	p.Stop()

	results := sink.Results()
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !results[0].Failed() || !errors.Is(results[0].Err, sendErr) {
		t.Errorf("Expected typed failure for first result, got %+v", results[0])
	}
	if results[0].Original[0] != "bad" {
		t.Errorf("Failed result should keep its original text, got %v", results[0].Original)
	}
	if results[1].Failed() || results[1].Translated[0] != "good-ok" {
		t.Errorf("Expected second result to succeed, got %+v", results[1])
	}
}

func TestSubmitAfterStop(t *testing.T) {
	p := New(echoSender(""), NewMemorySink(), 4, zap.NewNop())
	p.Start()
	p.Stop()

	if err := p.Submit(mustUtterance(t, "late")); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestConcurrentSubmitAndStop(t *testing.T) {
	utterance := mustUtterance(t, "race")

	for i := 0; i < 200; i++ {
		p := New(echoSender(""), NewMemorySink(), 4, zap.NewNop())
		p.Start()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := p.Submit(utterance); errors.Is(err, ErrStopped) {
					return
				}
			}
		}()

		p.Stop()
		wg.Wait()

		// Stop stays idempotent after a concurrent submitter has exited.
		p.Stop()
	}
}

func TestSubmitRejectsInvalidUtterance(t *testing.T) {
	p := New(echoSender(""), NewMemorySink(), 4, zap.NewNop())
	p.Start()
	defer p.Stop()

	if err := p.Submit(&entities.Utterance{TargetLanguage: "ko"}); err == nil {
		t.Error("Expected error for empty utterance")
	}
}

func TestTextIngestorDedup(t *testing.T) {
	sink := NewMemorySink()
	p := New(echoSender("-ko"), sink, 4, zap.NewNop())
	p.Start()

	ingestor := NewTextIngestor(p, "ko")

	submitted, err := ingestor.Ingest("hello")
	if err != nil || !submitted {
		t.Fatalf("First Ingest = (%v, %v), want (true, nil)", submitted, err)
	}
	submitted, err = ingestor.Ingest("hello")
	if err != nil || submitted {
		t.Fatalf("Repeat Ingest = (%v, %v), want (false, nil)", submitted, err)
	}

	ingestor.Reset()
	submitted, err = ingestor.Ingest("hello")
	if err != nil || !submitted {
		t.Fatalf("Ingest after Reset = (%v, %v), want (true, nil)", submitted, err)
	}

	p.Stop()

	if sink.Len() != 2 {
		t.Errorf("Expected 2 delivered results, got %d", sink.Len())
	}
}
