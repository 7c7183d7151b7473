// Package predicateview maintains an editable filter tree and keeps it in sync
// with a boolean predicate graph.
//
// A Control owns one tree built from row templates. Every edit recompiles the
// tree into a Predicate, which the host receives through OnPredicate and can
// evaluate in memory (Filter) or push down to SQL (Scope, Find). Load goes the
// other way and rebuilds the tree from an existing predicate.
//
// Row templates come from the constructors (StringField, NumberField, ...) or
// from a record struct through TemplatesFor:
//   - string kinds, bool, integers, floats and decimal.Decimal become string,
//     boolean and number rows
//   - time.Time becomes a date row
//   - registered enumeration types become enumeration rows
//   - pointers to any of the above become optional rows
//   - slices of structs become collections over the element's own rows
//   - nested structs contribute their rows with dotted field paths
package predicateview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nlstn/go-predicateview/internal/compiler"
	"github.com/nlstn/go-predicateview/internal/decoder"
	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/observability"
	"github.com/nlstn/go-predicateview/internal/tree"
)

// Control serialises access to a filter tree and recompiles it after edits.
type Control struct {
	mu        sync.Mutex
	tree      *tree.Tree
	templates []*Template
	compiler  *compiler.Compiler
	cache     *lru.Cache[CurrentValue, Predicate]
	logger    *slog.Logger
	obs       *observability.Config
	debounce  time.Duration

	dirty   bool
	current Predicate
	pending chan struct{}

	// listeners holds OnPredicate callbacks keyed by registration order.
	// queue holds compiled predicates awaiting delivery, in compile order.
	listenersMu sync.Mutex
	listeners   map[int]func(Predicate)
	nextID      int
	queue       []Predicate
	delivering  bool
}

// New creates a control over an empty tree whose root offers templates.
func New(templates []*Template, opts ...Option) (*Control, error) {
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("template %s: %w", t, err)
		}
	}

	cfg := config{
		calendar:  expression.DefaultCalendar(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Control{
		tree:      tree.New(templates),
		templates: templates,
		compiler:  compiler.New(cfg.calendar, logger),
		logger:    logger,
		obs:       observability.NewConfig(cfg.obs...),
		debounce:  cfg.debounce,
		pending:   make(chan struct{}, 1),
		listeners: make(map[int]func(Predicate)),
	}
	if cfg.cacheSize > 0 {
		cache, err := lru.New[CurrentValue, Predicate](cfg.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create predicate cache: %w", err)
		}
		c.cache = cache
	}

	c.tree.Observe(func(ch tree.Change) {
		c.dirty = true
		c.logger.Debug("Tree changed", "node", ch.ID, observability.LogFieldFingerprint, ch.Value.Fingerprint())
	})
	c.recompile(context.Background())
	return c, nil
}

// Templates returns the row templates offered at the root.
func (c *Control) Templates() []*Template {
	return c.templates
}

// Edit runs fn with exclusive access to the tree. If fn changed the tree, the
// predicate is recompiled before Edit returns, or scheduled for Run when the
// control is debounced. Changes fn made before failing are kept.
func (c *Control) Edit(fn func(t *Tree) error) error {
	return c.EditContext(context.Background(), fn)
}

// EditContext is Edit with a context for the recompile span.
func (c *Control) EditContext(ctx context.Context, fn func(t *Tree) error) error {
	c.mu.Lock()
	err := fn(c.tree)
	c.settleLocked(ctx)
	c.mu.Unlock()

	c.deliver()
	return err
}

// View runs fn with exclusive access to the tree. fn must not mutate it.
func (c *Control) View(fn func(t *Tree)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.tree)
}

// Snapshot returns the id-free value of the whole tree.
func (c *Control) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Snapshot(c.tree.Root())
}

// Predicate returns the most recently compiled predicate.
func (c *Control) Predicate() Predicate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OnPredicate registers fn to receive every recompiled predicate and returns a
// function that unregisters it. Predicates arrive in the order they were
// compiled, one call at a time. fn runs outside the control's lock and may
// call back into the control; predicates compiled meanwhile are delivered
// after fn returns.
func (c *Control) OnPredicate(fn func(Predicate)) (cancel func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

// Load replaces the tree with the decoding of p. Graph nodes no template
// recognises are dropped and counted in the returned Stats.
func (c *Control) Load(ctx context.Context, p Predicate) Stats {
	tracer := c.obs.Tracer()
	ctx, span := tracer.StartDecode(ctx, len(c.templates))
	defer span.End()

	draft, stats := decoder.DecodeDraft(p, c.templates)
	tracer.EndDecode(span, stats.Decoded, stats.Dropped)
	c.obs.Metrics().RecordDecode(ctx, stats.Decoded, stats.Dropped)

	logger := observability.LoggerWithTrace(ctx, c.logger)
	if stats.Dropped > 0 {
		logger.Warn("Dropped undecodable predicate nodes",
			observability.LogFieldDecoded, stats.Decoded,
			observability.LogFieldDropped, stats.Dropped)
	} else {
		logger.Debug("Decoded predicate", observability.LogFieldDecoded, stats.Decoded)
	}

	c.mu.Lock()
	c.tree.Replace(draft)
	c.settleLocked(ctx)
	c.mu.Unlock()

	c.deliver()
	return stats
}

// Run performs debounced recompiles until ctx is done. Without WithDebounce
// edits recompile synchronously and Run only waits for ctx.
func (c *Control) Run(ctx context.Context) error {
	if c.debounce <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	timer := time.NewTimer(c.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.pending:
		}
		timer.Reset(c.debounce)

	coalesce:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.pending:
				timer.Reset(c.debounce)
			case <-timer.C:
				break coalesce
			}
		}
		c.Flush(ctx)
	}
}

// Flush recompiles a pending change right away.
func (c *Control) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.dirty {
		c.enqueueLocked(c.recompile(ctx))
	}
	c.mu.Unlock()

	c.deliver()
}

// settleLocked recompiles after an edit, or signals Run when debounced.
func (c *Control) settleLocked(ctx context.Context) {
	if !c.dirty {
		return
	}
	if c.debounce > 0 {
		select {
		case c.pending <- struct{}{}:
		default:
		}
		return
	}
	c.enqueueLocked(c.recompile(ctx))
}

// recompile compiles the tree, or takes the predicate from the cache when a
// tree of the same value was compiled before. c.mu must be held.
func (c *Control) recompile(ctx context.Context) Predicate {
	start := time.Now()
	key := c.tree.CurrentValue(c.tree.Root())
	fingerprint := key.Fingerprint()

	tracer := c.obs.Tracer()
	ctx, span := tracer.StartCompile(ctx, c.tree.Len(), fingerprint)
	defer span.End()

	var p Predicate
	hit := false
	if c.cache != nil {
		p, hit = c.cache.Get(key)
	}
	if !hit {
		p = c.compiler.Compile(c.tree)
		if c.cache != nil {
			c.cache.Add(key, p)
		}
	}
	c.current = p
	c.dirty = false

	elapsed := time.Since(start)
	span.SetAttributes(observability.CacheHitAttr(hit))
	c.obs.Metrics().RecordCompile(ctx, elapsed, hit)
	observability.LoggerWithTrace(ctx, c.logger).Debug("Recompiled predicate",
		observability.LogFieldNodeCount, c.tree.Len(),
		observability.LogFieldFingerprint, fingerprint,
		observability.LogFieldDuration, elapsed.Milliseconds(),
		"cache_hit", hit)
	return p
}

// enqueueLocked queues p for the listeners. c.mu must be held so the queue
// follows compile order.
func (c *Control) enqueueLocked(p Predicate) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.queue = append(c.queue, p)
}

// deliver hands queued predicates to the listeners. One goroutine delivers at a
// time; a caller finding delivery under way leaves its predicate to it.
func (c *Control) deliver() {
	c.listenersMu.Lock()
	if c.delivering {
		c.listenersMu.Unlock()
		return
	}
	c.delivering = true

	for len(c.queue) > 0 {
		p := c.queue[0]
		c.queue = c.queue[1:]
		fns := c.listenersLocked()

		c.listenersMu.Unlock()
		for _, fn := range fns {
			fn(p)
		}
		c.listenersMu.Lock()
	}
	c.delivering = false
	c.listenersMu.Unlock()
}

// listenersLocked returns the callbacks in registration order.
func (c *Control) listenersLocked() []func(Predicate) {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Predicate), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	return fns
}
