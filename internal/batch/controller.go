package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apexwatch/face-enroll/internal/config"
	"github.com/apexwatch/face-enroll/internal/enrollment"
)

var (
	// ErrNoPending means Start was called with nothing to process.
	ErrNoPending = errors.New("no pending items to process")

	// ErrBatchRunning means the operation is not allowed while a run is
	// actively processing items.
	ErrBatchRunning = errors.New("a batch run is active")
)

// State is the batch-level phase of the controller.
type State string

// Controller states. Completed is terminal until RetryFailed or a fresh
// AddFiles moves the controller back to idle.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Enroller is the boundary to the enrollment service.
type Enroller interface {
	Enroll(ctx context.Context, req enrollment.Request) (*enrollment.Identity, error)
}

// Options tune one controller.
type Options struct {
	ItemDelay   time.Duration // throttle between consecutive enrollment calls
	CallTimeout time.Duration // ceiling per enrollment call; 0 disables
}

// Controller is the caller-facing facade of the pipeline. It owns the
// queue, screens incoming files through the validator, and drives pending
// items through the enrollment service strictly one at a time. The single
// worker and the inter-item delay rate-limit a constrained downstream
// service; there is never more than one enrollment call in flight.
type Controller struct {
	EventBroadcaster

	queue     *Queue
	validator *Validator
	enroller  Enroller
	opts      Options

	mu     sync.Mutex
	state  State
	paused bool

	// addMu serializes AddFiles so duplicate screening always sees every
	// previously accepted file.
	addMu sync.Mutex

	loopWG sync.WaitGroup
}

// NewController wires the pipeline facade around a queue, a validator, and
// an enrollment boundary.
func NewController(queue *Queue, validator *Validator, enroller Enroller, opts Options) *Controller {
	return &Controller{
		queue:     queue,
		validator: validator,
		enroller:  enroller,
		opts:      opts,
		state:     StateIdle,
	}
}

// AddReport carries the per-file outcome of one AddFiles call.
type AddReport struct {
	Accepted []Item         `json:"accepted"`
	Rejected []RejectedFile `json:"rejected"`
}

// RejectedFile names a file the validator refused and why.
type RejectedFile struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// AddFiles validates each candidate and queues the accepted ones,
// preserving their relative order. Rejected files never enter the queue.
// Accepting files after a completed run returns the controller to idle.
func (c *Controller) AddFiles(files []IncomingFile) AddReport {
	c.addMu.Lock()
	defer c.addMu.Unlock()

	var report AddReport
	for _, f := range files {
		item, err := c.validator.Validate(f)
		if err != nil {
			config.Logger.Warn().Str("file", f.Name).Err(err).Msg("file rejected")
			report.Rejected = append(report.Rejected, RejectedFile{FileName: f.Name, Reason: err.Error()})
			continue
		}
		c.queue.Add(item)
		report.Accepted = append(report.Accepted, *item)
	}

	if len(report.Accepted) > 0 {
		c.mu.Lock()
		if c.state == StateCompleted {
			c.state = StateIdle
		}
		c.mu.Unlock()
		c.SendEvent(Event{Type: EventItemAdded, Data: c.queue.Stats()})
	}

	return report
}

// RemoveItem deletes one item and releases its preview. An item whose
// enrollment call is in flight is rejected with ErrItemBusy.
func (c *Controller) RemoveItem(id string) error {
	if err := c.queue.Remove(id); err != nil {
		return err
	}
	c.SendEvent(Event{Type: EventItemRemoved, Data: c.queue.Stats()})
	return nil
}

// ClearAll removes and releases every item. Rejected while a run is
// actively processing. Clearing a paused or completed batch returns the
// controller to idle.
func (c *Controller) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return ErrBatchRunning
	}

	c.queue.Clear()
	c.state = StateIdle
	c.paused = false
	c.SendEvent(Event{Type: EventCleared, Data: c.queue.Stats()})
	return nil
}

// UpdateItemMetadata merges caller edits into one pending item.
func (c *Controller) UpdateItemMetadata(id string, patch MetadataPatch) (Item, error) {
	item, err := c.queue.UpdateMetadata(id, patch)
	if err != nil {
		return Item{}, err
	}
	c.SendEvent(Event{Type: EventItemUpdated, Data: item})
	return item, nil
}

// Start begins processing pending items in FIFO order. Calling Start while
// a run is active (running or paused) is a no-op; starting with nothing
// pending returns ErrNoPending.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning || c.state == StatePaused {
		return nil
	}

	if !c.queue.HasPending() {
		return ErrNoPending
	}

	c.state = StateRunning
	c.paused = false
	c.loopWG.Add(1)
	go c.run()

	config.Logger.Info().Int("pending", c.queue.Stats().Pending).Msg("batch started")
	return nil
}

// Pause prevents the next pending item from starting. The in-flight item,
// if any, still completes; pausing is not cancellation.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return
	}
	c.paused = true
}

// Resume lets a paused run proceed to the next pending item.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused && c.state != StatePaused {
		return
	}

	c.paused = false
	if c.state == StatePaused {
		// The loop parked; relaunch it.
		c.state = StateRunning
		c.loopWG.Add(1)
		go c.run()
		c.SendEvent(Event{Type: EventResumed, Message: "processing resumed", Data: c.queue.Stats()})
		config.Logger.Info().Msg("batch resumed")
	}
}

// RetryFailed resets every failed item to pending in place. The reset items
// keep their original queue positions for the next run. After a completed
// run this returns the controller to idle so Start is valid again.
func (c *Controller) RetryFailed() int {
	c.mu.Lock()
	reset := c.queue.ResetFailed()
	if reset > 0 {
		if c.state == StateCompleted {
			c.state = StateIdle
		}
		c.SendEvent(Event{Type: EventProgress, Data: c.queue.Stats()})
	}
	c.mu.Unlock()

	if reset > 0 {
		config.Logger.Info().Int("reset", reset).Msg("failed items reset to pending")
	}
	return reset
}

// State reports the controller's current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns snapshots of all queued items in order.
func (c *Controller) Items() []Item {
	return c.queue.Items()
}

// Item returns a snapshot of one queued item.
func (c *Controller) Item(id string) (Item, bool) {
	return c.queue.Get(id)
}

// Stats returns the current derived counts.
func (c *Controller) Stats() Stats {
	return c.queue.Stats()
}

// Close pauses processing and waits for the in-flight item to finish,
// bounded by ctx. Queued items stay in place; the preview store's owner
// tears their resources down separately.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateRunning {
		c.paused = true
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.loopWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the processing loop. One loop goroutine is alive per active run;
// it parks when the pause flag is set and terminates when no pending items
// remain.
func (c *Controller) run() {
	defer c.loopWG.Done()

	for {
		c.mu.Lock()
		if c.paused {
			c.state = StatePaused
			c.SendEvent(Event{Type: EventPaused, Message: "processing paused", Data: c.queue.Stats()})
			c.mu.Unlock()
			config.Logger.Info().Msg("batch paused")
			return
		}

		item, ok := c.queue.markNextProcessing()
		if !ok {
			stats := c.queue.Stats()
			summary := Summary{Total: stats.Total, Successful: stats.Success, Failed: stats.Failed}
			c.state = StateCompleted
			c.SendEvent(Event{Type: EventCompleted, Data: summary})
			c.mu.Unlock()
			config.Logger.Info().
				Int("total", summary.Total).
				Int("successful", summary.Successful).
				Int("failed", summary.Failed).
				Msg("batch completed")
			return
		}
		c.mu.Unlock()

		c.SendEvent(Event{Type: EventProgress, Data: c.queue.Stats()})

		c.processItem(item)

		c.SendEvent(Event{Type: EventProgress, Data: c.queue.Stats()})

		// Throttle before considering the next item.
		if c.queue.HasPending() && !c.isPaused() && c.opts.ItemDelay > 0 {
			time.Sleep(c.opts.ItemDelay)
		}
	}
}

// processItem runs one enrollment call and records the outcome. Per-item
// failures never escape; the loop always proceeds.
func (c *Controller) processItem(it Item) {
	ctx := context.Background()
	cancel := func() {}
	if c.opts.CallTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
	}
	defer cancel()

	result, err := c.enroller.Enroll(ctx, enrollment.Request{
		FileName:    it.FileName,
		ContentType: it.ContentType,
		Data:        it.Data,
		Name:        it.DisplayName,
		Department:  it.Department,
		AccessLevel: it.AccessLevel,
	})
	if err != nil {
		c.queue.markFailed(it.ID, displayMessage(err))
		config.Logger.Warn().Str("item", it.ID).Str("name", it.DisplayName).Err(err).Msg("enrollment failed")
		return
	}

	c.queue.markSuccess(it.ID, result)
	config.Logger.Info().Str("item", it.ID).Str("name", it.DisplayName).Int64("face_id", result.FaceID).Msg("face enrolled")
}

func (c *Controller) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// displayMessage favors the service's human-readable message over the full
// error chain.
func displayMessage(err error) string {
	var enrollErr *enrollment.Error
	if errors.As(err, &enrollErr) {
		return enrollErr.Message
	}
	return err.Error()
}
