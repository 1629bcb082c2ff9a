package source

import (
	"context"
	"fmt"

	"github.com/newthinker/crossover/internal/core"
)

// Options selects and configures a source
type Options struct {
	Type       string // parquet, csv or clickhouse
	Path       string
	BatchSize  int64
	ClickHouse ClickHouseConfig
}

// Open creates the reader named by opts.Type, wrapped so that out-of-order
// timestamps fail the read.
func Open(ctx context.Context, opts Options) (Reader, error) {
	var (
		r   Reader
		err error
	)
	switch opts.Type {
	case "parquet":
		r, err = OpenParquet(ctx, opts.Path, opts.BatchSize)
	case "csv":
		r, err = OpenCSV(opts.Path)
	case "clickhouse":
		r, err = OpenClickHouse(ctx, opts.ClickHouse)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown source type %q", opts.Type))
	}
	if err != nil {
		return nil, err
	}
	return NewOrdered(r), nil
}
