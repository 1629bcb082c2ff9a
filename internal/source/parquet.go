package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/newthinker/crossover/internal/core"
)

// DefaultBatchSize is the number of rows decoded per record batch.
const DefaultBatchSize = 64 * 1024

// Parquet streams bars from a parquet file in record batches, decoding only
// the required columns.
type Parquet struct {
	pf *file.Reader
	rr pqarrow.RecordReader

	rec    arrow.Record
	row    int
	timeAt int
	prices [8]int
	rows   int
}

// OpenParquet opens path and prepares a batched reader over the required
// columns. batchSize <= 0 selects DefaultBatchSize.
func OpenParquet(ctx context.Context, path string, batchSize int64) (*Parquet, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("opening %s: %w", path, err))
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: batchSize}, memory.DefaultAllocator)
	if err != nil {
		pf.Close()
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("reading parquet metadata: %w", err))
	}

	leaves, err := projectColumns(fr)
	if err != nil {
		pf.Close()
		return nil, err
	}

	rr, err := fr.GetRecordReader(ctx, leaves, nil)
	if err != nil {
		pf.Close()
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("creating record reader: %w", err))
	}

	p := &Parquet{pf: pf, rr: rr}
	schema := rr.Schema()
	p.timeAt = schema.FieldIndices(ColDatetime)[0]
	for i, name := range PriceColumns {
		p.prices[i] = schema.FieldIndices(name)[0]
	}
	return p, nil
}

// projectColumns checks names and types of the required columns and
// returns their leaf column indices.
func projectColumns(fr *pqarrow.FileReader) ([]int, error) {
	schema, err := fr.Schema()
	if err != nil {
		return nil, core.WrapError(core.ErrSchemaInvalid, fmt.Errorf("converting parquet schema: %w", err))
	}

	names := make([]string, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	if err := requireColumns(names); err != nil {
		return nil, err
	}

	leaves := make([]int, 0, len(Columns))
	for _, name := range Columns {
		idx := schema.FieldIndices(name)[0]
		field := schema.Field(idx)
		if err := checkArrowType(name, field.Type); err != nil {
			return nil, err
		}
		leaf := fr.Manifest.Fields[idx].ColIndex
		if leaf < 0 {
			return nil, core.WrapError(core.ErrSchemaInvalid, fmt.Errorf("column %s is nested", name))
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

func checkArrowType(name string, dt arrow.DataType) error {
	var ok bool
	if name == ColDatetime {
		switch dt.ID() {
		case arrow.TIMESTAMP, arrow.DATE64, arrow.INT64:
			ok = true
		}
	} else {
		switch dt.ID() {
		case arrow.FLOAT64, arrow.FLOAT32:
			ok = true
		}
	}
	if !ok {
		return core.WrapError(core.ErrSchemaInvalid,
			fmt.Errorf("column %s has unsupported type %s", name, dt))
	}
	return nil
}

func (p *Parquet) Next(ctx context.Context) (core.Bar, error) {
	for p.rec == nil || p.row >= int(p.rec.NumRows()) {
		if err := ctx.Err(); err != nil {
			return core.Bar{}, err
		}
		rec, err := p.rr.Read()
		if errors.Is(err, io.EOF) || (err == nil && rec == nil) {
			return core.Bar{}, io.EOF
		}
		if err != nil {
			return core.Bar{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("reading batch after row %d: %w", p.rows, err))
		}
		p.rec, p.row = rec, 0
	}

	i := p.row
	ts, ok := arrowTime(p.rec.Column(p.timeAt), i)
	if !ok {
		return core.Bar{}, core.WrapError(core.ErrSchemaInvalid,
			fmt.Errorf("row %d: null %s", p.rows, ColDatetime))
	}

	var prices [8]core.Price
	for j, col := range p.prices {
		prices[j] = arrowPrice(p.rec.Column(col), i)
	}

	p.row++
	p.rows++
	bar := barFromPrices(prices)
	bar.Time = ts
	return bar, nil
}

func (p *Parquet) Close() error {
	p.rr.Release()
	return p.pf.Close()
}

func arrowPrice(arr arrow.Array, i int) core.Price {
	if arr.IsNull(i) {
		return core.Null
	}
	switch a := arr.(type) {
	case *array.Float64:
		return core.Some(a.Value(i))
	case *array.Float32:
		return core.Some(float64(a.Value(i)))
	}
	return core.Null
}

// arrowTime reads a timestamp; INT64 columns are epoch milliseconds.
func arrowTime(arr arrow.Array, i int) (time.Time, bool) {
	if arr.IsNull(i) {
		return time.Time{}, false
	}
	switch a := arr.(type) {
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit), true
	case *array.Date64:
		return a.Value(i).ToTime(), true
	case *array.Int64:
		return time.UnixMilli(a.Value(i)).UTC(), true
	}
	return time.Time{}, false
}
