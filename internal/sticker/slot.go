package sticker

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Slot holds the active sticker. Requests load asynchronously; the frame
// loop picks up finished loads with Poll so the active asset only changes
// on that goroutine. A load whose request has been superseded, or that
// finishes after Close, is dropped.
type Slot struct {
	loader Loader
	log    logrus.FieldLogger

	mu      sync.Mutex
	gen     uint64
	source  string
	active  *Asset
	pending *outcome
	cancel  context.CancelFunc
	closed  bool
}

type outcome struct {
	source string
	asset  *Asset
	err    error
}

// Change describes what Poll applied.
type Change struct {
	Asset  *Asset
	Source string
	Err    error
}

// NewSlot creates an empty slot loading through loader.
func NewSlot(loader Loader, log logrus.FieldLogger) *Slot {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Slot{loader: loader, log: log}
}

// Request starts loading source, superseding any earlier request. An empty
// source clears the sticker on the next Poll.
func (s *Slot) Request(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.source = source
	s.pending = nil

	if source == "" {
		s.pending = &outcome{}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.load(ctx, s.gen, source)
}

func (s *Slot) load(ctx context.Context, gen uint64, source string) {
	asset, err := s.loader.Load(ctx, source)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.log.WithField("source", Describe(source)).Debug("dropping superseded sticker load")
		return
	}
	s.cancel = nil
	s.pending = &outcome{source: source, asset: asset, err: err}
}

// Poll applies a finished load, if any. A failed load clears the active
// sticker.
func (s *Slot) Poll() (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Change{}, false
	}
	p := s.pending
	s.pending = nil

	if p.err != nil {
		s.log.WithError(p.err).WithField("source", Describe(p.source)).Warn("sticker load failed")
		s.active = nil
		return Change{Source: p.source, Err: p.err}, true
	}
	s.active = p.asset
	return Change{Asset: p.asset, Source: p.source}, true
}

// Active returns the asset currently on screen, or nil.
func (s *Slot) Active() *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Source returns the most recently requested source.
func (s *Slot) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Loading reports whether a request has not resolved yet.
func (s *Slot) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Close cancels in-flight loads and ignores any that still complete.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.gen++
	s.pending = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
