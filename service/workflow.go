package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

var (
	ErrSubmissionInFlight = errors.New("an analysis is already running")
	ErrMissingImages      = model.NewValidationError("please upload both OP1 and OP3 images")
	ErrWorkflowClosed     = errors.New("session is closed")
)

const partialWarning = "analysis completed with partial errors"

// Workflow is the per-session state machine:
//
//	idle -> files_selected -> submitting -> succeeded | failed -> submitting ...
//
// At most one submission is outstanding. All state changes happen under mu.
type Workflow struct {
	mu sync.Mutex

	session  string
	analyzer Analyzer
	previews PreviewStore

	assets     map[model.Slot]*model.ImageAsset
	submitting bool
	generation uint64
	done       chan struct{}
	closed     bool
	lastActive time.Time

	ctx    context.Context
	cancel context.CancelFunc

	results ResultSlot
}

func NewWorkflow(session string, analyzer Analyzer, previews PreviewStore) *Workflow {
	ctx, cancel := context.WithCancel(context.Background())
	return &Workflow{
		session:    session,
		analyzer:   analyzer,
		previews:   previews,
		assets:     make(map[model.Slot]*model.ImageAsset, len(model.Slots)),
		lastActive: time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Select puts asset into slot and releases the preview of the asset it replaces.
func (w *Workflow) Select(ctx context.Context, slot model.Slot, asset *model.ImageAsset) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWorkflowClosed
	}
	old := w.assets[slot]
	w.assets[slot] = asset
	w.lastActive = time.Now()
	w.mu.Unlock()

	if old != nil {
		if err := w.previews.Release(ctx, old.Preview); err != nil {
			utils.Logger.Warn("failed to release superseded preview",
				zap.String("session", w.session),
				zap.String("slot", string(slot)),
				zap.Error(err))
		}
	}
	return nil
}

// Submit starts an analysis of the current OP1/OP3 pair and returns its
// generation. The previous outcome is cleared before Submit returns.
func (w *Workflow) Submit() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrWorkflowClosed
	}
	if w.submitting {
		return 0, ErrSubmissionInFlight
	}
	op1, op3 := w.assets[model.SlotOP1], w.assets[model.SlotOP3]
	if op1 == nil || op3 == nil {
		return 0, ErrMissingImages
	}

	w.generation++
	gen := w.generation
	w.results.Clear(gen)
	w.submitting = true
	w.done = make(chan struct{})
	w.lastActive = time.Now()

	utils.Logger.Info("analysis submitted",
		zap.String("session", w.session),
		zap.Uint64("generation", gen),
		zap.String("op1", op1.Filename),
		zap.String("op3", op3.Filename))

	go w.run(gen, op1, op3, w.done)
	return gen, nil
}

func (w *Workflow) run(gen uint64, op1, op3 *model.ImageAsset, done chan struct{}) {
	defer close(done)

	result, err := w.analyzer.Analyze(w.ctx, op1, op3)
	outcome := resolve(gen, result, err)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen == w.generation {
		w.submitting = false
	}
	if !w.results.Publish(outcome) {
		utils.Logger.Debug("discarding superseded analysis outcome",
			zap.String("session", w.session),
			zap.Uint64("generation", gen))
		return
	}

	if outcome.Error != nil {
		utils.Logger.Warn("analysis failed",
			zap.String("session", w.session),
			zap.Uint64("generation", gen),
			zap.String("kind", string(outcome.Error.Kind)),
			zap.String("message", outcome.Error.Message),
			zap.Error(err))
		return
	}
	if outcome.Warning != "" {
		utils.Logger.Warn("analysis partially failed",
			zap.String("session", w.session),
			zap.Uint64("generation", gen),
			zap.String("warning", outcome.Warning))
	}
}

func resolve(gen uint64, result *model.AnalysisResult, err error) Outcome {
	if err != nil {
		var wfErr *model.WorkflowError
		if errors.As(err, &wfErr) {
			d := wfErr.Descriptor()
			return Outcome{Generation: gen, Error: &d}
		}
		return Outcome{Generation: gen, Error: &model.ErrorDescriptor{
			Kind:    model.ErrServiceError,
			Message: genericServiceMessage,
		}}
	}
	if result == nil {
		return Outcome{Generation: gen, Error: &model.ErrorDescriptor{
			Kind:    model.ErrServiceError,
			Message: genericServiceMessage,
		}}
	}

	o := Outcome{Generation: gen, Result: result}
	if result.Partial() {
		o.Warning = result.Message
		if o.Warning == "" {
			o.Warning = partialWarning
		}
	}
	return o
}

// Wait blocks until the outstanding submission resolves or ctx ends.
func (w *Workflow) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the workflow.
func (w *Workflow) State() *model.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := &model.WorkflowState{
		Session:    w.session,
		Generation: w.generation,
		OP1:        w.assets[model.SlotOP1],
		OP3:        w.assets[model.SlotOP3],
	}

	outcome := w.results.Load()
	switch {
	case w.submitting:
		s.State = model.StateSubmitting
	case outcome != nil && outcome.Result != nil:
		s.State = model.StateSucceeded
	case outcome != nil && outcome.Error != nil:
		s.State = model.StateFailed
	case s.OP1 != nil || s.OP3 != nil:
		s.State = model.StateFilesSelected
	default:
		s.State = model.StateIdle
	}

	if outcome != nil {
		s.Result = outcome.Result
		s.Warning = outcome.Warning
		s.Error = outcome.Error
		if outcome.Result != nil {
			summary := outcome.Result.Summary()
			s.Summary = &summary
		}
	}

	s.CanSubmit = !w.submitting && !w.closed && s.OP1 != nil && s.OP3 != nil
	s.CanExport = s.Result != nil
	return s
}

// Result returns the live analysis result, or nil. The overlay and the
// export both read it from here.
func (w *Workflow) Result() *model.AnalysisResult {
	return w.results.Result()
}

// Asset returns the asset currently held in slot.
func (w *Workflow) Asset(slot model.Slot) *model.ImageAsset {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.assets[slot]
}

// Submitting reports whether a request is outstanding.
func (w *Workflow) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// IdleSince reports when the workflow was last touched.
func (w *Workflow) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// Touch marks the workflow as active.
func (w *Workflow) Touch() {
	w.mu.Lock()
	w.lastActive = time.Now()
	w.mu.Unlock()
}

// Close cancels any outstanding request and releases every preview.
func (w *Workflow) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.cancel()
	assets := w.assets
	w.assets = make(map[model.Slot]*model.ImageAsset)
	w.mu.Unlock()

	var errs []error
	for _, a := range assets {
		if err := w.previews.Release(ctx, a.Preview); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
