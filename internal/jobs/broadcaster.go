package jobs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/corpora-dev/corpora/pkg/logger"
)

const (
	// pollInterval is how often the broadcaster samples the status registry;
	// it doubles as the per-job emit throttle for active jobs
	pollInterval = 500 * time.Millisecond

	// evictAfter removes tracking entries for jobs no longer in the registry
	evictAfter = 5 * time.Minute

	// retryDelay is the pause after a delivery failure
	retryDelay = time.Second

	// subscriberBuffer bounds each subscriber channel
	subscriberBuffer = 16
)

// Broadcaster polls the queue's status registry and pushes throttled
// progress updates to per-job subscribers. Terminal states are delivered
// exactly once per subscriber lifetime.
type Broadcaster struct {
	queue *Queue
	log   *slog.Logger

	mu       sync.Mutex
	subs     map[string]map[chan Status]struct{}
	lastEmit map[string]*emitRecord

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

type emitRecord struct {
	at           time.Time
	terminalSent bool
	seenAt       time.Time
}

// NewBroadcaster creates a progress broadcaster over the queue
func NewBroadcaster(queue *Queue, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		queue:    queue,
		log:      log.With(logger.Scope("jobs.broadcaster")),
		subs:     make(map[string]map[chan Status]struct{}),
		lastEmit: make(map[string]*emitRecord),
	}
}

// Start launches the polling loop
func (b *Broadcaster) Start() {
	b.stopCh = make(chan struct{})
	b.stoppedCh = make(chan struct{})
	go b.run()
	b.log.Info("progress broadcaster started")
}

// Stop terminates the polling loop and closes all subscriber channels
func (b *Broadcaster) Stop() {
	if b.stopCh == nil {
		return
	}
	close(b.stopCh)
	<-b.stoppedCh

	b.mu.Lock()
	for _, channels := range b.subs {
		for ch := range channels {
			close(ch)
		}
	}
	b.subs = make(map[string]map[chan Status]struct{})
	b.mu.Unlock()
}

// Subscribe returns a channel of progress updates for one job and a
// function that ends the subscription. The current status, if known, is
// delivered immediately.
func (b *Broadcaster) Subscribe(jobID string) (<-chan Status, func()) {
	ch := make(chan Status, subscriberBuffer)

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan Status]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	b.mu.Unlock()

	if st, ok := b.queue.GetStatus(jobID); ok {
		select {
		case ch <- st:
		default:
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if channels, ok := b.subs[jobID]; ok {
				if _, live := channels[ch]; live {
					delete(channels, ch)
					close(ch)
				}
				if len(channels) == 0 {
					delete(b.subs, jobID)
				}
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

func (b *Broadcaster) run() {
	defer close(b.stoppedCh)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			if err := b.tick(); err != nil {
				b.log.Warn("broadcast tick failed", logger.Error(err))
				select {
				case <-time.After(retryDelay):
				case <-b.stopCh:
					return
				}
			}
		}
	}
}

// tick samples the status registry once, emitting deltas per the throttle
// rules and evicting tracking entries for vanished jobs.
func (b *Broadcaster) tick() error {
	now := time.Now()
	statuses := b.queue.Snapshot()

	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		seen[st.JobID] = true

		rec, known := b.lastEmit[st.JobID]
		if !known {
			rec = &emitRecord{}
			b.lastEmit[st.JobID] = rec
		}
		rec.seenAt = now

		var emit bool
		switch {
		case !known:
			// Always emit on first observation
			emit = true
		case st.State.Terminal():
			emit = !rec.terminalSent
		default:
			emit = now.Sub(rec.at) >= pollInterval
		}
		if !emit {
			continue
		}

		rec.at = now
		if st.State.Terminal() {
			rec.terminalSent = true
		}
		b.deliverLocked(st)
	}

	for jobID, rec := range b.lastEmit {
		if !seen[jobID] && now.Sub(rec.seenAt) > evictAfter {
			delete(b.lastEmit, jobID)
		}
	}
	return nil
}

// deliverLocked fans a status out to its subscribers. A slow subscriber
// loses intermediate updates rather than blocking the loop.
func (b *Broadcaster) deliverLocked(st Status) {
	for ch := range b.subs[st.JobID] {
		select {
		case ch <- st:
		default:
		}
	}
}
