package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one shot notification shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Visitor is the state container of one browser. It owns the three
// stores every page reads from and the pending notifications.
type Visitor struct {
	ID      string
	Session *SessionStore
	Books   *BookStore
	Lists   *ReadingListStore
	Users   UserEndpoints

	mu       sync.Mutex
	flashes  []Flash
	lastSeen time.Time
	inflight int
}

// Notify queues a notification for the next page.
func (v *Visitor) Notify(kind, message string) {
	v.mu.Lock()
	v.flashes = append(v.flashes, Flash{Kind: kind, Message: message})
	v.mu.Unlock()
}

// PopFlashes returns and clears the pending notifications.
func (v *Visitor) PopFlashes() []Flash {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.flashes
	v.flashes = nil
	return out
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

// evictable reports whether no request is running for the visitor and its
// last activity is older than ttl.
func (v *Visitor) evictable(now time.Time, ttl time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inflight == 0 && now.Sub(v.lastSeen) > ttl
}

// VisitorFactory builds the container of a new visitor.
type VisitorFactory func(id string) *Visitor

// VisitorRegistry keeps the visitors seen recently, keyed by their cookie id.
type VisitorRegistry struct {
	logger   *zap.Logger
	clock    TickerClocker
	factory  VisitorFactory
	idleTTL  time.Duration
	interval time.Duration

	mu       sync.Mutex
	visitors map[string]*Visitor
}

// NewVisitorRegistry provides an empty registry.
func NewVisitorRegistry(logger *zap.Logger, clock TickerClocker, config *SessionConfig, factory VisitorFactory) *VisitorRegistry {
	return &VisitorRegistry{
		logger:   logger,
		clock:    clock,
		factory:  factory,
		idleTTL:  config.IdleTTL,
		interval: config.SweepInterval,
		visitors: make(map[string]*Visitor),
	}
}

// Get returns the visitor of id and refreshes its last activity time.
func (vr *VisitorRegistry) Get(id string) (*Visitor, bool) {
	vr.mu.Lock()
	v, ok := vr.visitors[id]
	vr.mu.Unlock()
	if ok {
		v.touch(vr.clock.Now())
	}
	return v, ok
}

// GetOrCreate returns the visitor of id, building it when unknown. A new
// visitor starts resolving its session in the background right away.
func (vr *VisitorRegistry) GetOrCreate(id string) *Visitor {
	return vr.lookup(id, false)
}

// Acquire is GetOrCreate for the duration of a request. The visitor is
// not swept until the returned release func is called.
func (vr *VisitorRegistry) Acquire(id string) (*Visitor, func()) {
	v := vr.lookup(id, true)
	var once sync.Once
	return v, func() {
		once.Do(func() {
			v.mu.Lock()
			v.inflight--
			v.lastSeen = vr.clock.Now()
			v.mu.Unlock()
		})
	}
}

func (vr *VisitorRegistry) lookup(id string, hold bool) *Visitor {
	now := vr.clock.Now()
	vr.mu.Lock()
	v, ok := vr.visitors[id]
	if !ok {
		v = vr.factory(id)
		vr.visitors[id] = v
	}
	v.mu.Lock()
	v.lastSeen = now
	if hold {
		v.inflight++
	}
	v.mu.Unlock()
	vr.mu.Unlock()
	if !ok {
		go v.Session.Initialize(context.Background())
	}
	return v
}

// Len returns the number of tracked visitors.
func (vr *VisitorRegistry) Len() int {
	vr.mu.Lock()
	defer vr.mu.Unlock()
	return len(vr.visitors)
}

// Sweep forgets the visitors idle for longer than the configured ttl and
// without a running request. Their persisted tokens are kept so they are
// recognized when back.
func (vr *VisitorRegistry) Sweep() int {
	now := vr.clock.Now()
	vr.mu.Lock()
	defer vr.mu.Unlock()
	removed := 0
	for id, v := range vr.visitors {
		if v.evictable(now, vr.idleTTL) {
			delete(vr.visitors, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle visitors periodically until ctx is done.
func (vr *VisitorRegistry) Run(ctx context.Context) error {
	ticker := vr.clock.NewTicker(vr.interval)
	defer ticker.Stop()
	vr.logger.Info("visitors sweeper started", zap.Duration("sweeper.interval", vr.interval))
	for {
		select {
		case <-ctx.Done():
			vr.logger.Info("visitors sweeper stopped")
			return nil
		case <-ticker.C:
			if n := vr.Sweep(); n > 0 {
				vr.logger.Info("idle visitors evicted", zap.Int("visitors.evicted", n), zap.Int("visitors.active", vr.Len()))
			}
		}
	}
}
