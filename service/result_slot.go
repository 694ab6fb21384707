package service

import (
	"sync"

	"github.com/soumoditt-source/EcoDrone-AI/model"
)

// Outcome is what a finished submission leaves behind: a result (possibly
// with a warning) or an error, never both.
type Outcome struct {
	Generation uint64
	Result     *model.AnalysisResult
	Warning    string
	Error      *model.ErrorDescriptor
}

// ResultSlot holds the single live outcome of a session. Clear opens a new
// generation; Publish only lands if its generation is still the open one, so
// a late resolution of an older submission can never overwrite a newer one.
type ResultSlot struct {
	mu         sync.RWMutex
	generation uint64
	outcome    *Outcome
}

// Clear drops the live outcome and makes gen the only generation that may publish.
func (s *ResultSlot) Clear(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = gen
	s.outcome = nil
}

// Publish atomically replaces the live outcome. It reports false and changes
// nothing when o belongs to a superseded generation.
func (s *ResultSlot) Publish(o Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Generation != s.generation {
		return false
	}
	s.outcome = &o
	return true
}

// Load returns the live outcome, or nil.
func (s *ResultSlot) Load() *Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outcome == nil {
		return nil
	}
	o := *s.outcome
	return &o
}

// Result returns the live analysis result, or nil.
func (s *ResultSlot) Result() *model.AnalysisResult {
	if o := s.Load(); o != nil {
		return o.Result
	}
	return nil
}
