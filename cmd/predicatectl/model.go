package main

import (
	"time"

	"github.com/nlstn/go-predicateview"
)

// Genre classifies a book.
type Genre string

const (
	GenreFiction Genre = "fiction"
	GenreHistory Genre = "history"
	GenrePoetry  Genre = "poetry"
	GenreScience Genre = "science"
)

// Review is one reader's rating of a book.
type Review struct {
	ID      uint   `yaml:"-"`
	BookID  uint   `yaml:"-"`
	Stars   int    `yaml:"stars"`
	Comment string `yaml:"comment"`
}

// Book is the record type fixtures filter.
type Book struct {
	ID        uint      `yaml:"-"`
	Title     string    `yaml:"title"`
	Author    string    `yaml:"author"`
	Pages     int       `yaml:"pages"`
	Price     float64   `yaml:"price"`
	Genre     Genre     `yaml:"genre"`
	InPrint   bool      `yaml:"inPrint"`
	Published time.Time `yaml:"published"`
	Rating    *int      `yaml:"rating"`
	Reviews   []Review  `yaml:"reviews"`
}

func init() {
	if err := predicateview.RegisterEnumType(Genre(""), GenreFiction, GenreHistory, GenrePoetry, GenreScience); err != nil {
		panic(err)
	}
}

func bookTemplates() ([]*predicateview.Template, error) {
	return predicateview.TemplatesFor(Book{})
}
