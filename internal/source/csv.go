package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/crossover/internal/core"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Timestamp layouts accepted in the datetime column, besides epoch
// milliseconds.
var csvTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CSV reads bars from delimited text with a header row. Empty cells are
// nulls.
type CSV struct {
	r      *csv.Reader
	closer io.Closer
	timeAt int
	prices [8]int
	line   int
}

// OpenCSV opens a CSV file.
func OpenCSV(path string) (*CSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("opening %s: %w", path, err))
	}
	c, err := NewCSV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.closer = f
	return c, nil
}

// NewCSV reads CSV from r. UTF-8 is assumed unless a byte order mark says
// otherwise, so UTF-16 exports are decoded transparently.
func NewCSV(r io.Reader) (*CSV, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.WrapError(core.ErrSchemaInvalid, errors.New("empty input, no header row"))
		}
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("reading header: %w", err))
	}

	names := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
		index[names[i]] = i
	}
	if err := requireColumns(names); err != nil {
		return nil, err
	}

	c := &CSV{r: cr, timeAt: index[ColDatetime], line: 1}
	for i, name := range PriceColumns {
		c.prices[i] = index[name]
	}
	return c, nil
}

func (c *CSV) Next(ctx context.Context) (core.Bar, error) {
	if err := ctx.Err(); err != nil {
		return core.Bar{}, err
	}

	record, err := c.r.Read()
	if errors.Is(err, io.EOF) {
		return core.Bar{}, io.EOF
	}
	c.line++
	if err != nil {
		return core.Bar{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("line %d: %w", c.line, err))
	}

	ts, err := parseCSVTime(record[c.timeAt])
	if err != nil {
		return core.Bar{}, core.WrapError(core.ErrSchemaInvalid,
			fmt.Errorf("line %d: column %s: %w", c.line, ColDatetime, err))
	}

	var prices [8]core.Price
	for i, col := range c.prices {
		p, err := parseCSVPrice(record[col])
		if err != nil {
			return core.Bar{}, core.WrapError(core.ErrSchemaInvalid,
				fmt.Errorf("line %d: column %s: %w", c.line, PriceColumns[i], err))
		}
		prices[i] = p
	}

	bar := barFromPrices(prices)
	bar.Time = ts
	return bar, nil
}

func (c *CSV) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func parseCSVPrice(s string) (core.Price, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nan", "na":
		return core.Null, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.Null, fmt.Errorf("not a number: %q", s)
	}
	return core.Some(v), nil
}

func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("null timestamp")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
