package storage

import (
	"context"
	"errors"
)

// ErrRowOutOfRange is returned when a row index does not address a stored row.
var ErrRowOutOfRange = errors.New("storage: row index out of range")

// ListingStore is the interface any tabular backend must satisfy. Rows are
// ordered field values (see models.FieldNames) addressed by 0-based position,
// header excluded. Column 0 is the listing URL.
type ListingStore interface {
	// FindRow returns the position of the row whose URL column equals url.
	FindRow(ctx context.Context, url string) (int, bool, error)
	ReadAllRows(ctx context.Context) ([][]string, error)
	WriteRow(ctx context.Context, index int, row []string) error
	// AppendRow adds row at the end and returns its position.
	AppendRow(ctx context.Context, row []string) (int, error)
	// DeleteRows removes positions from..to inclusive; later rows shift up.
	DeleteRows(ctx context.Context, from, to int) error
	Close() error
}

// RowExporter is the interface for dumping stored rows elsewhere.
type RowExporter interface {
	WriteRows(headers []string, rows [][]string) error
	Close() error
}
