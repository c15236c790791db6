// Package render hands extracted windows, append deltas and status updates
// to renderers. Each renderer owns its own state and is only ever called
// from its own goroutine.
package render

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/window"
)

// Renderer consumes updates. Calls for one renderer are never concurrent.
type Renderer interface {
	OnWindowUpdate(f window.Frame)
	OnAppend(d window.Delta)
	OnStatusChange(s core.Status)
}

// DefaultQueue is the per-subscriber queue length.
const DefaultQueue = 64

// Update is one queued hand-off. Exactly one field is set.
type Update struct {
	Frame  *window.Frame
	Status *core.Status
}

type subscriber struct {
	id      string
	r       Renderer
	ch      chan Update
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64

	// Deltas are never dropped. Pending samples accumulate here and are
	// handed over as one delta once the renderer catches up.
	pendMu  sync.Mutex
	pending *window.Delta
	wake    chan struct{}
}

// merge folds d into the pending delta. A delta from a newer epoch replaces
// the pending one; at most MaxLength of the newest samples are kept.
func (s *subscriber) merge(d *window.Delta) {
	s.pendMu.Lock()
	switch {
	case s.pending == nil || s.pending.Epoch != d.Epoch:
		cp := *d
		cp.Samples = append([]sample.Sample(nil), d.Samples...)
		s.pending = &cp
	default:
		s.pending.Samples = append(s.pending.Samples, d.Samples...)
		s.pending.MaxLength = d.MaxLength
	}
	if n := s.pending.MaxLength; n > 0 && len(s.pending.Samples) > n {
		s.pending.Samples = append([]sample.Sample(nil), s.pending.Samples[len(s.pending.Samples)-n:]...)
	}
	s.pendMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) takePending() *window.Delta {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	d := s.pending
	s.pending = nil
	return d
}

// Hub fans updates out to subscribers. Publishing never blocks: a renderer
// that falls behind loses frames and status updates, which the next ones
// supersede, while its append deltas are merged so no sample is lost.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	queue  int
	logger *log.Logger
	wg     sync.WaitGroup
}

// NewHub creates a hub. queue <= 0 selects DefaultQueue.
func NewHub(queue int, logger *log.Logger) *Hub {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{
		subs:   make(map[string]*subscriber),
		queue:  queue,
		logger: logger,
	}
}

// Subscribe registers r and starts its delivery goroutine. The returned
// cancel function unregisters it and waits for in-flight calls to finish.
func (h *Hub) Subscribe(r Renderer) (string, func()) {
	s := &subscriber{
		id:   uuid.NewString(),
		r:    r,
		ch:   make(chan Update, h.queue),
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.subs[s.id] = s
	h.mu.Unlock()

	exited := make(chan struct{})
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(exited)
		h.deliver(s)
	}()
	h.logger.Debug("renderer subscribed", "id", s.id)

	cancel := func() {
		h.remove(s)
		<-exited
	}
	return s.id, cancel
}

func (h *Hub) deliver(s *subscriber) {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			if d := s.takePending(); d != nil {
				s.r.OnAppend(*d)
			}
		case u := <-s.ch:
			switch {
			case u.Frame != nil:
				s.r.OnWindowUpdate(*u.Frame)
			case u.Status != nil:
				s.r.OnStatusChange(*u.Status)
			}
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	if n := s.dropped.Load(); n > 0 {
		h.logger.Debug("renderer unsubscribed", "id", s.id, "dropped", n)
	}
}

// Publish queues every part of out that carries renderable data.
func (h *Hub) Publish(out core.Outcome) {
	if out.Frame != nil {
		h.send(Update{Frame: out.Frame})
	}
	if out.Delta != nil {
		h.mu.RLock()
		for _, s := range h.subs {
			s.merge(out.Delta)
		}
		h.mu.RUnlock()
	}
	if out.Status != nil {
		h.send(Update{Status: out.Status})
	}
}

// PublishStatus queues a status update.
func (h *Hub) PublishStatus(st core.Status) {
	h.send(Update{Status: &st})
}

func (h *Hub) send(u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.ch <- u:
		default:
			s.dropped.Add(1)
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of frame and status updates dropped for
// subscriber id.
func (h *Hub) Dropped(id string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.subs[id]; ok {
		return s.dropped.Load()
	}
	return 0
}

// Close unregisters every subscriber and waits for delivery to stop.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		h.remove(s)
	}
	h.wg.Wait()
}
