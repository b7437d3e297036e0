// Package watch keeps the current-task answer live. A Watcher recomputes it
// whenever the task data changes, on a cron tick (time-of-day gates move
// with the clock), and when the schedule configuration is reloaded, and
// publishes only answers that differ from the previous one.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	cronlib "github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhle/nowtask/internal/model"
)

// Notifier is told after every committed change to the task data.
type Notifier interface {
	Notify()
}

var _ Notifier = (*Watcher)(nil)

// ComputeFunc produces the current task from a fresh read of the store.
// A nil task with a nil error means nothing is ready.
type ComputeFunc func(ctx context.Context) (*model.Task, error)

// State is the state of the watcher's last recomputation.
type State int

const (
	Idle State = iota
	Running
	Failed
)

// Status describes the watcher's last recomputation.
type Status struct {
	State   State
	LastRun time.Time
	Error   error
}

// ResultMsg is a tea.Msg carrying a changed current-task answer. Err is set
// when the answer could not be computed; Task is then nil.
type ResultMsg struct {
	Task *model.Task
	Err  error
}

// DefaultSchedule re-evaluates at the top of every minute.
const DefaultSchedule = "* * * * *"

// computeTimeout bounds a single recomputation.
const computeTimeout = 10 * time.Second

// cronParser parses standard 5-field cron expressions.
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher recomputes the current task in a single background goroutine.
type Watcher struct {
	compute ComputeFunc
	logger  *slog.Logger
	tracer  trace.Tracer

	mu       sync.Mutex
	schedule cronlib.Schedule
	status   Status
	last     *ResultMsg
	running  bool
	stopped  bool

	resultCh  chan ResultMsg
	triggerCh chan struct{}
	resetCh   chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a Watcher that ticks on DefaultSchedule.
func New(compute ComputeFunc, opts ...Option) *Watcher {
	sched, _ := cronParser.Parse(DefaultSchedule)
	w := &Watcher{
		compute:   compute,
		logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/nhle/nowtask/internal/watch"),
		schedule:  sched,
		resultCh:  make(chan ResultMsg, 1),
		triggerCh: make(chan struct{}, 1),
		resetCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ValidateSchedule reports whether spec is a refresh schedule SetSchedule
// accepts.
func ValidateSchedule(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return nil
}

// SetSchedule replaces the tick schedule. The next tick is re-planned
// immediately when the watcher is running.
func (w *Watcher) SetSchedule(spec string) error {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}

	w.mu.Lock()
	w.schedule = sched
	w.mu.Unlock()

	select {
	case w.resetCh <- struct{}{}:
	default:
	}
	return nil
}

// Run starts the recomputation goroutine. It computes an answer right away.
// Calling Run on a running or stopped watcher does nothing.
func (w *Watcher) Run() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopped {
		return
	}
	w.running = true
	go w.loop()
}

// Start runs the watcher and returns a tea.Cmd that delivers the first
// ResultMsg to the Bubble Tea runtime.
func (w *Watcher) Start() tea.Cmd {
	w.Run()
	return w.waitForResult()
}

// Stop halts the watcher and waits for an in-flight recomputation to end.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	running := w.running
	close(w.stopCh)
	w.mu.Unlock()

	if running {
		<-w.doneCh
	}
}

// Notify requests a recomputation. Requests arriving while one is pending
// are coalesced; it never blocks.
func (w *Watcher) Notify() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Results returns the channel answers are published on. Only the latest
// unread answer is kept.
func (w *Watcher) Results() <-chan ResultMsg {
	return w.resultCh
}

// Last returns the most recently published answer.
func (w *Watcher) Last() (ResultMsg, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return ResultMsg{}, false
	}
	return *w.last, true
}

// Status returns the state of the last recomputation.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// WaitForNextResult returns a tea.Cmd that waits for the next published
// answer. Call it after handling each ResultMsg to keep listening.
func (w *Watcher) WaitForNextResult() tea.Cmd {
	return w.waitForResult()
}

func (w *Watcher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.resultCh:
			return msg
		case <-w.stopCh:
			return nil
		}
	}
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	w.recompute()

	for {
		timer := time.NewTimer(w.untilNextTick(time.Now()))
		select {
		case <-w.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			w.recompute()
		case <-w.triggerCh:
			timer.Stop()
			w.recompute()
		case <-w.resetCh:
			timer.Stop()
		}
	}
}

func (w *Watcher) untilNextTick(now time.Time) time.Duration {
	w.mu.Lock()
	next := w.schedule.Next(now)
	w.mu.Unlock()

	d := next.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// recompute runs the compute function once and publishes its answer if it
// changed.
func (w *Watcher) recompute() {
	w.setStatus(Running, nil)

	ctx, cancel := context.WithTimeout(context.Background(), computeTimeout)
	defer cancel()
	ctx, span := w.tracer.Start(ctx, "watch.recompute")
	defer span.End()

	task, err := w.compute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.logger.Warn("current task unavailable", "error", err)
		w.setStatus(Failed, err)
		w.publish(ResultMsg{Err: err})
		return
	}

	w.setStatus(Idle, nil)
	w.publish(ResultMsg{Task: task})
}

func (w *Watcher) setStatus(state State, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.State = state
	w.status.Error = err
	if state != Running {
		w.status.LastRun = time.Now()
	}
}

// publish sends msg unless it equals the last published answer. An unread
// older answer is replaced.
func (w *Watcher) publish(msg ResultMsg) {
	w.mu.Lock()
	if w.last != nil && sameResult(*w.last, msg) {
		w.mu.Unlock()
		return
	}
	w.last = &msg
	w.mu.Unlock()

	if msg.Task != nil {
		w.logger.Debug("current task changed", "task_id", msg.Task.ID, "name", msg.Task.Name)
	} else if msg.Err == nil {
		w.logger.Debug("no task ready")
	}

	for {
		select {
		case w.resultCh <- msg:
			return
		default:
		}
		select {
		case <-w.resultCh:
		default:
		}
	}
}

func sameResult(a, b ResultMsg) bool {
	if (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if a.Err != nil {
		return a.Err.Error() == b.Err.Error()
	}
	if a.Task == nil || b.Task == nil {
		return a.Task == nil && b.Task == nil
	}
	return reflect.DeepEqual(*a.Task, *b.Task)
}
