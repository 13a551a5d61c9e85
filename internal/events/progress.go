package events

import (
	"sync"

	"github.com/google/uuid"
)

// minDelta is the 5‰ downsampling threshold from spec.md §4.4: a bus
// event is only emitted when the fraction moves by more than this amount
// since the last one sent.
const minDelta = 0.005

// ProgressEventType tags what kind of long-running operation a bar
// represents (download, install, processor run, …), mirroring spec.md's
// "event type tag" field.
type ProgressEventType string

// ProgressPayload accompanies progress/loading bus events.
type ProgressPayload struct {
	ID       string
	Type     ProgressEventType
	Message  string
	Fraction float64
	Done     bool
}

// progressBar is the server-side ticker described in spec.md §3.
type progressBar struct {
	mu       sync.Mutex
	id       string
	typ      ProgressEventType
	message  string
	total    float64
	current  float64
	lastSent float64
}

// ProgressTracker is a concurrent table of progress bars. Reads never
// block on writes: each bar has its own lock, and the table lock is only
// held long enough to look an entry up.
type ProgressTracker struct {
	bus     *Bus
	mu      sync.RWMutex
	bars    map[string]*progressBar
}

func NewProgressTracker(bus *Bus) *ProgressTracker {
	return &ProgressTracker{bus: bus, bars: make(map[string]*progressBar)}
}

// Init creates a new progress bar and returns its id.
func (t *ProgressTracker) Init(typ ProgressEventType, total float64, message string) string {
	id := uuid.NewString()
	bar := &progressBar{id: id, typ: typ, total: total, message: message}

	t.mu.Lock()
	t.bars[id] = bar
	t.mu.Unlock()

	t.bus.Publish(Event{Kind: KindLoading, Payload: ProgressPayload{
		ID: id, Type: typ, Message: message, Fraction: 0,
	}})
	return id
}

// InitOrEdit creates a bar if id is nil/unknown, or resets an existing one
// in place (same id, fresh total/message/current=0) otherwise.
func (t *ProgressTracker) InitOrEdit(id *string, typ ProgressEventType, total float64, message string) string {
	if id == nil {
		return t.Init(typ, total, message)
	}
	t.mu.RLock()
	bar, ok := t.bars[*id]
	t.mu.RUnlock()
	if !ok {
		return t.Init(typ, total, message)
	}

	bar.mu.Lock()
	bar.typ = typ
	bar.total = total
	bar.message = message
	bar.current = 0
	bar.lastSent = 0
	bar.mu.Unlock()

	t.bus.Publish(Event{Kind: KindLoading, Payload: ProgressPayload{
		ID: *id, Type: typ, Message: message, Fraction: 0,
	}})
	return *id
}

// Emit advances current by delta and, optionally, replaces the message.
// It only publishes a bus event when the fraction has moved by more than
// minDelta since the last publish, per spec.md §4.4.
func (t *ProgressTracker) Emit(id string, delta float64, message *string) {
	t.mu.RLock()
	bar, ok := t.bars[id]
	t.mu.RUnlock()
	if !ok {
		return
	}

	bar.mu.Lock()
	bar.current += delta
	if message != nil {
		bar.message = *message
	}
	fraction := bar.fraction()
	shouldSend := fraction-bar.lastSent > minDelta || fraction-bar.lastSent < -minDelta
	if shouldSend {
		bar.lastSent = fraction
	}
	msg := bar.message
	bar.mu.Unlock()

	if shouldSend {
		t.bus.Publish(Event{Kind: KindProgress, Payload: ProgressPayload{
			ID: id, Type: bar.typ, Message: msg, Fraction: clamp01(fraction),
		}})
	}
}

func (b *progressBar) fraction() float64 {
	if b.total <= 0 {
		return 1
	}
	return b.current / b.total
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Finish emits a final "completed" event and removes the bar. Resolves
// Open Question 2 from spec.md §9: completion is an explicit call, never
// an implicit fraction >= 1.0 nudge.
func (t *ProgressTracker) Finish(id string) {
	t.mu.Lock()
	bar, ok := t.bars[id]
	if ok {
		delete(t.bars, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	bar.mu.Lock()
	typ, msg := bar.typ, bar.message
	bar.mu.Unlock()

	t.bus.Publish(Event{Kind: KindProgress, Payload: ProgressPayload{
		ID: id, Type: typ, Message: msg, Fraction: 1, Done: true,
	}})
}

// Cancel drops the bar with a "cancelled" final event instead of
// "completed", per spec.md §5 cancellation semantics.
func (t *ProgressTracker) Cancel(id string) {
	t.mu.Lock()
	bar, ok := t.bars[id]
	if ok {
		delete(t.bars, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	bar.mu.Lock()
	typ := bar.typ
	bar.mu.Unlock()

	t.bus.Publish(Event{Kind: KindProgress, Payload: ProgressPayload{
		ID: id, Type: typ, Message: "cancelled", Fraction: bar.fraction(), Done: true,
	}})
}
