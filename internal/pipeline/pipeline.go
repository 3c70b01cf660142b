package pipeline

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/artranslate/relay/domain/entities"
	"github.com/artranslate/relay/internal/protocol"
	"github.com/artranslate/relay/internal/segmenter"
)

// ErrStopped is returned by Submit after the pipeline has been stopped.
var ErrStopped = errors.New("pipeline stopped")

// Result is one delivered translation outcome. Err is non-nil for failed
// utterances; failures are delivered rather than silently dropped so the
// display layer can show them.
type Result struct {
	Original   []string
	Translated []string
	Err        error
}

// Failed reports whether this result carries an error instead of a
// translation.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Sink receives translation results. Implementations must tolerate being
// called from the pipeline's send goroutine.
type Sink interface {
	Deliver(result Result)
}

// Sender ships one utterance and blocks for its response. Implemented by
// transport.Session.
type Sender interface {
	Send(utterance *entities.Utterance) (*protocol.TranslationResponse, error)
}

// Pipeline carries completed utterances from the capture side to the
// transport session over a bounded channel, so segmenter state and the
// network never share a goroutine.
type Pipeline struct {
	sender Sender
	sink   Sink
	logger *zap.Logger

	utterances chan *entities.Utterance

	// mu orders Submit against Stop so a send can never race the close of
	// the queue.
	mu      sync.Mutex
	stopped bool

	finished chan struct{}
}

// New creates a pipeline with the given queue capacity.
func New(sender Sender, sink Sink, queueSize int, logger *zap.Logger) *Pipeline {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pipeline{
		sender:     sender,
		sink:       sink,
		logger:     logger,
		utterances: make(chan *entities.Utterance, queueSize),
		finished:   make(chan struct{}),
	}
}

// Start launches the send goroutine. Each utterance is shipped in order; a
// failed send becomes a failed Result, never a terminated loop.
func (p *Pipeline) Start() {
	go func() {
		defer close(p.finished)
		for utterance := range p.utterances {
			resp, err := p.sender.Send(utterance)
			if err != nil {
				p.logger.Warn("Utterance failed",
					zap.Strings("text", utterance.Text),
					zap.Error(err))
				p.sink.Deliver(Result{Original: utterance.Text, Err: err})
				continue
			}
			p.sink.Deliver(Result{Original: utterance.Text, Translated: resp.Texts()})
		}
	}()
}

// Submit queues one utterance for sending, blocking while the queue is full.
// It is safe to call concurrently with Stop; a submit that loses the race
// returns ErrStopped.
func (p *Pipeline) Submit(utterance *entities.Utterance) error {
	if err := utterance.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	p.utterances <- utterance
	return nil
}

// Stop closes the queue and waits for queued utterances to drain. It is safe
// to call more than once.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.utterances)
	}
	p.mu.Unlock()
	<-p.finished
}

// TextIngestor feeds recognized-text events into a pipeline, suppressing
// repeats with a session-scoped dedup filter.
type TextIngestor struct {
	filter   *segmenter.TextFilter
	pipeline *Pipeline
	target   string
}

// NewTextIngestor creates an ingestor translating into the target language.
func NewTextIngestor(pipeline *Pipeline, target string) *TextIngestor {
	return &TextIngestor{
		filter:   segmenter.NewTextFilter(),
		pipeline: pipeline,
		target:   target,
	}
}

// Ingest submits text the first time it is seen in this session and reports
// whether it was submitted.
func (i *TextIngestor) Ingest(text string) (bool, error) {
	observed, fresh := i.filter.Observe(text)
	if !fresh {
		return false, nil
	}
	utterance, err := entities.NewUtterance([]string{observed}, i.target)
	if err != nil {
		return false, err
	}
	if err := i.pipeline.Submit(utterance); err != nil {
		return false, err
	}
	return true, nil
}

// Reset clears the dedup filter, letting previously seen text through again.
func (i *TextIngestor) Reset() {
	i.filter.Reset()
}
