package predicateview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tag struct {
	ID     uint
	TaskID uint
	Name   string
}

type task struct {
	ID     uint
	Title  string
	Done   bool
	Points int
	Tags   []tag
}

func taskTemplates(t *testing.T) []*Template {
	t.Helper()
	templates, err := TemplatesFor(task{})
	require.NoError(t, err)
	return templates
}

func templateFor(t *testing.T, templates []*Template, field string) *Template {
	t.Helper()
	for _, tmpl := range templates {
		if tmpl.Field == field {
			return tmpl
		}
	}
	t.Fatalf("no template for %s", field)
	return nil
}

// appendRow returns an edit adding a row for field with op and value.
func appendRow(tb *testing.T, templates []*Template, field string, op Operator, value any) func(*Tree) error {
	return func(tr *Tree) error {
		id, err := tr.Append(tr.Root(), templateFor(tb, templates, field))
		if err != nil {
			return err
		}
		if err := tr.SetOperator(id, op); err != nil {
			return err
		}
		return tr.SetValue(id, value)
	}
}

func TestNewValidatesTemplates(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoTemplates)

	_, err = New([]*Template{EnumField("Status", "Status")})
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestNewCompilesEmptyTree(t *testing.T) {
	c, err := New(taskTemplates(t))
	require.NoError(t, err)
	assert.True(t, c.Predicate().IsTrue())
	assert.Len(t, c.Templates(), 5)
}

func TestEditRecompiles(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	var received []Predicate
	c.OnPredicate(func(p Predicate) { received = append(received, p) })

	require.NoError(t, c.Edit(appendRow(t, templates, "Title", OpContains, "write")))
	require.Len(t, received, 1)

	tasks := []task{{Title: "Write docs"}, {Title: "Fix bug"}, {Title: "Rewrite parser"}}
	got, err := Filter(tasks, c.Predicate())
	require.NoError(t, err)
	assert.Equal(t, []task{tasks[0], tasks[2]}, got)

	// viewing does not recompile
	c.View(func(tr *Tree) { assert.Equal(t, 2, tr.Len()) })
	assert.Len(t, received, 1)
}

func TestEditWithoutChangeDoesNotPublish(t *testing.T) {
	c, err := New(taskTemplates(t))
	require.NoError(t, err)

	calls := 0
	c.OnPredicate(func(Predicate) { calls++ })
	require.NoError(t, c.Edit(func(*Tree) error { return nil }))
	assert.Zero(t, calls)
}

func TestEditErrorKeepsChanges(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.Edit(func(tr *Tree) error {
		if err := appendRow(t, templates, "Done", OpIs, true)(tr); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ok, err := c.Predicate().Evaluate(task{Done: false})
	require.NoError(t, err)
	assert.False(t, ok, "the row added before the error should still filter")
}

func TestEditRejectsInvalidValues(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	err = c.Edit(appendRow(t, templates, "Points", OpGreaterThan, "many"))
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = c.Edit(appendRow(t, templates, "Points", OpContains, decimal.NewFromInt(1)))
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestEmptyStringRowDoesNotConstrain(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	require.NoError(t, c.Edit(func(tr *Tree) error {
		_, err := tr.Append(tr.Root(), templateFor(t, templates, "Title"))
		return err
	}))
	assert.True(t, c.Predicate().IsTrue())
}

func TestCompiledPredicatesAreCached(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	var id ID
	require.NoError(t, c.Edit(func(tr *Tree) error {
		var err error
		id, err = tr.Append(tr.Root(), templateFor(t, templates, "Points"))
		if err != nil {
			return err
		}
		return tr.SetValue(id, decimal.NewFromInt(3))
	}))
	first := c.Predicate()

	require.NoError(t, c.Edit(func(tr *Tree) error { return tr.SetValue(id, decimal.NewFromInt(4)) }))
	second := c.Predicate()
	assert.NotSame(t, first.Input, second.Input)

	require.NoError(t, c.Edit(func(tr *Tree) error { return tr.SetValue(id, decimal.NewFromInt(3)) }))
	assert.Same(t, first.Input, c.Predicate().Input, "a tree value seen before should reuse its predicate")
}

func TestCacheDisabled(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates, WithCacheSize(0))
	require.NoError(t, err)

	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, true)))
	first := c.Predicate()
	require.NoError(t, c.Edit(func(tr *Tree) error { return tr.Clear(tr.Root()) }))
	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, true)))
	assert.NotSame(t, first.Input, c.Predicate().Input)
}

func TestLoadRebuildsTree(t *testing.T) {
	templates := taskTemplates(t)
	source, err := New(templates)
	require.NoError(t, err)
	require.NoError(t, source.Edit(appendRow(t, templates, "Title", OpBeginsWith, "Fix")))
	require.NoError(t, source.Edit(appendRow(t, templates, "Points", OpLessThan, decimal.NewFromInt(5))))

	target, err := New(templates)
	require.NoError(t, err)
	var received int
	target.OnPredicate(func(Predicate) { received++ })

	stats := target.Load(context.Background(), source.Predicate())
	assert.Equal(t, 2, stats.Decoded)
	assert.Zero(t, stats.Dropped)
	assert.Equal(t, 1, received)
	assert.Equal(t, source.Snapshot().Encode(), target.Snapshot().Encode())
}

func TestLoadCountsDroppedNodes(t *testing.T) {
	c, err := New(taskTemplates(t))
	require.NoError(t, err)

	foreign := NewPredicate(func(in *Variable) Expression {
		return &equalsUnknown{input: in}
	})
	stats := c.Load(context.Background(), foreign)
	assert.Equal(t, 1, stats.Dropped)
	assert.True(t, c.Predicate().IsTrue())
}

// equalsUnknown is a host expression no template recognises.
type equalsUnknown struct {
	input *Variable
}

func (e *equalsUnknown) Evaluate(Bindings) (any, error) { return true, nil }

func TestOnPredicateCancel(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	calls := 0
	cancel := c.OnPredicate(func(Predicate) { calls++ })
	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, true)))
	cancel()
	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, false)))
	assert.Equal(t, 1, calls)
}

func TestCallbackMayReadControl(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	var seen Predicate
	c.OnPredicate(func(Predicate) { seen = c.Predicate() })
	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, true)))
	assert.False(t, seen.IsTrue())
}

func TestDebouncedRecompile(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	var mu sync.Mutex
	var received []Predicate
	c.OnPredicate(func(p Predicate) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, p)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Edit(appendRow(t, templates, "Points", OpGreaterThan, decimal.NewFromInt(int64(i)))))
	}
	assert.True(t, c.Predicate().IsTrue(), "debounced edits should not compile synchronously")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, time.Second, 5*time.Millisecond)

	ok, err := c.Predicate().Evaluate(task{Points: 4})
	require.NoError(t, err)
	assert.False(t, ok, "the last edit (points > 4) should be compiled")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, len(received), 5, "bursts should coalesce")
}

func TestFlushWithoutRun(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates, WithDebounce(time.Hour))
	require.NoError(t, err)

	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, true)))
	assert.True(t, c.Predicate().IsTrue())
	c.Flush(context.Background())
	assert.False(t, c.Predicate().IsTrue())
}

func TestRunWithoutDebounce(t *testing.T) {
	c, err := New(taskTemplates(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestRegisterEnumType(t *testing.T) {
	type level string
	assert.Error(t, RegisterEnumType(nil, "a"))
	assert.Error(t, RegisterEnumType(level("")))
	require.NoError(t, RegisterEnumType((*level)(nil), level("low"), level("high")))

	type ticket struct {
		Level level
	}
	templates, err := TemplatesFor(ticket{})
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, KindEnum, templates[0].Kind)
	assert.Equal(t, []any{level("low"), level("high")}, templates[0].Cases)
}

func openTaskDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&task{}, &tag{}))

	tasks := []task{
		{Title: "Write docs", Points: 2, Tags: []tag{{Name: "docs"}}},
		{Title: "Fix bug", Points: 5, Done: true, Tags: []tag{{Name: "urgent"}, {Name: "backend"}}},
		{Title: "fix flaky test", Points: 3},
	}
	require.NoError(t, db.Create(&tasks).Error)
	return db
}

func TestQueryPushesDown(t *testing.T) {
	db := openTaskDB(t)
	templates := taskTemplates(t)
	c, err := New(templates, WithObservability(
		WithTracerProvider(tracenoop.NewTracerProvider()),
		WithMeterProvider(noop.NewMeterProvider()),
		WithDetailedDBTracing(),
	))
	require.NoError(t, err)
	require.NoError(t, c.InstrumentDB(db))

	require.NoError(t, c.Edit(func(tr *Tree) error {
		tags := templateFor(t, templates, "Tags")
		id, err := tr.Append(tr.Root(), tags)
		if err != nil {
			return err
		}
		n, _ := tr.Node(id)
		elem, err := tr.Append(n.Group, templateFor(t, tags.Elements, "Name"))
		if err != nil {
			return err
		}
		if err := tr.SetOperator(elem, OpEquals); err != nil {
			return err
		}
		return tr.SetValue(elem, "urgent")
	}))

	clause, err := c.Translate(context.Background(), db, &task{})
	require.NoError(t, err)
	assert.False(t, clause.Residual)
	assert.Contains(t, clause.SQL, "EXISTS")

	rows, err := Query[task](context.Background(), c, db)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fix bug", rows[0].Title)
}

func TestFindFiltersResidualInMemory(t *testing.T) {
	db := openTaskDB(t)
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	// sqlite LIKE ignores case, so begins-with is re-checked in memory
	require.NoError(t, c.Edit(appendRow(t, templates, "Title", OpBeginsWith, "Fix")))

	var scoped []task
	require.NoError(t, db.Scopes(Scope(c.Predicate(), &task{})).Order("id").Find(&scoped).Error)
	assert.Len(t, scoped, 2)

	rows, err := Find[task](db.Order("id"), c.Predicate())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Fix bug", rows[0].Title)
}

func TestTranslateErrors(t *testing.T) {
	c, err := New(taskTemplates(t))
	require.NoError(t, err)

	_, err = c.Translate(context.Background(), nil, &task{})
	assert.Error(t, err)

	db := openTaskDB(t)
	_, err = c.Translate(context.Background(), db, nil)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestCompileDecodeRoundTrip(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)
	require.NoError(t, c.Edit(appendRow(t, templates, "Title", OpContains, "fix")))
	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, false)))

	tr, stats := Decode(c.Predicate(), templates)
	assert.Equal(t, 2, stats.Decoded)
	assert.Equal(t, c.Snapshot().Encode(), tr.CurrentValue(tr.Root()))

	p := Compile(tr, DefaultCalendar())
	tasks := []task{{Title: "Fix bug", Done: true}, {Title: "fix flaky test"}, {Title: "Write docs"}}
	got, err := Filter(tasks, p)
	require.NoError(t, err)
	assert.Equal(t, []task{tasks[1]}, got)
}

func TestConcurrentEditsDeliverInCompileOrder(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates, WithCacheSize(0))
	require.NoError(t, err)

	var mu sync.Mutex
	var received []Predicate
	c.OnPredicate(func(p Predicate) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, p)
	})

	const editors = 16
	var wg sync.WaitGroup
	for i := 0; i < editors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Edit(appendRow(t, templates, "Points", OpGreaterThan, decimal.NewFromInt(int64(i)))))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, editors)
	assert.Same(t, c.Predicate().Input, received[editors-1].Input, "the last delivered predicate should be the current one")
}

func TestCallbackEditsAreDeliveredAfterIt(t *testing.T) {
	templates := taskTemplates(t)
	c, err := New(templates)
	require.NoError(t, err)

	var order []bool
	c.OnPredicate(func(p Predicate) {
		order = append(order, p.IsTrue())
		if len(order) == 1 {
			// runs while the first predicate is still being delivered
			require.NoError(t, c.Edit(func(tr *Tree) error { return tr.Clear(tr.Root()) }))
			assert.Len(t, order, 1, "nested edits should not be delivered re-entrantly")
		}
	})

	require.NoError(t, c.Edit(appendRow(t, templates, "Done", OpIs, true)))
	assert.Equal(t, []bool{false, true}, order)
	assert.True(t, c.Predicate().IsTrue())
}
