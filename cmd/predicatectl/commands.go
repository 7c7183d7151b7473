package main

import (
	"context"
	"fmt"
	"io"

	"github.com/nlstn/go-predicateview"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type templateInfo struct {
	Field     string         `yaml:"field"`
	Title     string         `yaml:"title"`
	Kind      string         `yaml:"kind"`
	Operators []string       `yaml:"operators"`
	Cases     []string       `yaml:"cases,omitempty"`
	Elements  []templateInfo `yaml:"elements,omitempty"`
}

func describeTemplates(templates []*predicateview.Template) []templateInfo {
	out := make([]templateInfo, 0, len(templates))
	for _, t := range templates {
		info := templateInfo{
			Field:    t.Field,
			Title:    t.Title,
			Kind:     string(t.Kind),
			Elements: describeTemplates(t.Elements),
		}
		if t.Kind == predicateview.KindOptional {
			info.Kind = fmt.Sprintf("%s %s", t.Kind, t.Inner)
		}
		for _, op := range t.Operators() {
			info.Operators = append(info.Operators, op.String())
		}
		for _, c := range t.Cases {
			info.Cases = append(info.Cases, fmt.Sprint(c))
		}
		if len(info.Elements) == 0 {
			info.Elements = nil
		}
		out = append(out, info)
	}
	return out
}

func runTemplates(w io.Writer) error {
	templates, err := bookTemplates()
	if err != nil {
		return err
	}
	return writeYAML(w, describeTemplates(templates))
}

type evalResult struct {
	Predicate string   `yaml:"predicate"`
	Matches   []string `yaml:"matches"`
}

func runEval(w io.Writer, opts *options, path string) error {
	c, f, err := opts.control(path)
	if err != nil {
		return err
	}
	p := c.Predicate()
	matches, err := predicateview.Filter(f.Books, p)
	if err != nil {
		return fmt.Errorf("failed to evaluate predicate: %w", err)
	}
	return writeYAML(w, evalResult{Predicate: p.String(), Matches: titles(matches)})
}

type sqlResult struct {
	Dialect  string   `yaml:"dialect"`
	Where    string   `yaml:"where"`
	Vars     []any    `yaml:"vars,omitempty"`
	Residual bool     `yaml:"residual"`
	Matches  []string `yaml:"matches,omitempty"`
}

func openDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if dsn != "" {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func runSQL(ctx context.Context, w io.Writer, opts *options, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, f, err := opts.control(path)
	if err != nil {
		return err
	}
	db, err := openDB(opts.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() {
			if err := sqlDB.Close(); err != nil {
				opts.logger().Warn("Failed to close database", "error", err)
			}
		}()
	}

	clause, err := c.Translate(ctx, db, &Book{})
	if err != nil {
		return err
	}
	res := sqlResult{Dialect: db.Dialector.Name(), Where: clause.SQL, Vars: clause.Vars, Residual: clause.Residual}

	if opts.run {
		if err := db.AutoMigrate(&Book{}, &Review{}); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		if len(f.Books) > 0 {
			if err := db.Create(&f.Books).Error; err != nil {
				return fmt.Errorf("failed to insert books: %w", err)
			}
		}
		books, err := predicateview.Query[Book](ctx, c, db.Order("id"))
		if err != nil {
			return err
		}
		res.Matches = titles(books)
	}
	return writeYAML(w, res)
}

type roundTripResult struct {
	Predicate string                  `yaml:"predicate"`
	Decoded   int                     `yaml:"decoded"`
	Dropped   int                     `yaml:"dropped"`
	Stable    bool                    `yaml:"stable"`
	Tree      *predicateview.Snapshot `yaml:"tree"`
}

func runRoundTrip(ctx context.Context, w io.Writer, opts *options, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, _, err := opts.control(path)
	if err != nil {
		return err
	}
	p := c.Predicate()
	before := c.Snapshot().Encode()

	stats := c.Load(ctx, p)
	after := c.Snapshot()
	return writeYAML(w, roundTripResult{
		Predicate: p.String(),
		Decoded:   stats.Decoded,
		Dropped:   stats.Dropped,
		Stable:    after.Encode() == before,
		Tree:      after,
	})
}
