package dataset

import (
	"context"
	"io"
	"log"
	"time"

	"kpijoin/adapters/excel"
	"kpijoin/domain/table"

	"golang.org/x/sync/errgroup"
)

// Upload is a named file stream handed over by the transport layer
type Upload struct {
	Filename string
	Reader   io.Reader
}

// Description lists the columns of an uploaded pair
type Description struct {
	ColsA      []string `json:"dataset1_cols"`
	ColsB      []string `json:"dataset2_cols"`
	CommonCols []string `json:"common_columns"`
}

// Loader parses uploaded files into tables
type Loader struct{}

// NewLoader creates a new dataset loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses a single upload
func (l *Loader) Load(ctx context.Context, u Upload) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return excel.ReadTable(u.Filename, u.Reader)
}

// LoadPair parses both uploads concurrently. Either failure fails the pair.
// File types are checked before any parsing starts, and when both parses fail
// the first upload's error is reported.
func (l *Loader) LoadPair(ctx context.Context, a, b Upload) (*table.Table, *table.Table, error) {
	start := time.Now()

	for _, u := range []Upload{a, b} {
		if _, err := excel.DetectFileType(u.Filename); err != nil {
			return nil, nil, err
		}
	}

	var tableA, tableB *table.Table
	var errA, errB error

	var g errgroup.Group
	g.Go(func() error {
		tableA, errA = l.Load(ctx, a)
		return errA
	})
	g.Go(func() error {
		tableB, errB = l.Load(ctx, b)
		return errB
	})
	if err := g.Wait(); err != nil {
		if errA != nil {
			return nil, nil, errA
		}
		if errB != nil {
			return nil, nil, errB
		}
		return nil, nil, err
	}

	log.Printf("[Loader] pair loaded in %v: %s (%dx%d), %s (%dx%d)",
		time.Since(start), a.Filename, tableA.Len(), tableA.Width(), b.Filename, tableB.Len(), tableB.Width())
	return tableA, tableB, nil
}

// Describe reports both column lists and the columns they share. Common
// columns follow the first table's order.
func Describe(a, b *table.Table) Description {
	desc := Description{
		ColsA:      a.Columns(),
		ColsB:      b.Columns(),
		CommonCols: []string{},
	}
	for _, name := range desc.ColsA {
		if b.Has(name) {
			desc.CommonCols = append(desc.CommonCols, name)
		}
	}
	return desc
}
