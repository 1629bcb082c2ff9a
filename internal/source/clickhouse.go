package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/newthinker/crossover/internal/core"
)

// unknownIdentifier is the ClickHouse error code for a missing column.
const unknownIdentifier = 47

// ClickHouseConfig holds connection settings for a ClickHouse bar table
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

// ClickHouse streams bars from a table ordered by datetime
type ClickHouse struct {
	conn driver.Conn
	rows driver.Rows
	row  int
}

// OpenClickHouse connects, checks the table schema and starts the query.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("clickhouse open: %w", err))
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("clickhouse ping: %w", err))
	}

	query, err := barQuery(cfg.Table)
	if err != nil {
		conn.Close()
		return nil, err
	}

	rows, err := conn.Query(ctx, query)
	if err != nil {
		conn.Close()
		var exc *clickhouse.Exception
		if errors.As(err, &exc) && exc.Code == unknownIdentifier {
			return nil, core.WrapError(core.ErrSchemaInvalid, err)
		}
		return nil, core.WrapError(core.ErrSourceFailed, fmt.Errorf("clickhouse query: %w", err))
	}

	types := make(map[string]string, len(Columns))
	for _, ct := range rows.ColumnTypes() {
		types[ct.Name()] = ct.DatabaseTypeName()
	}
	if err := checkClickHouseTypes(types); err != nil {
		rows.Close()
		conn.Close()
		return nil, err
	}

	return &ClickHouse{conn: conn, rows: rows}, nil
}

// barQuery builds the select for table, which may be qualified as db.table.
func barQuery(table string) (string, error) {
	if table == "" {
		return "", core.WrapError(core.ErrConfigMissing, errors.New("clickhouse table is required"))
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, "`\\") {
			return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid table name %q", table))
		}
		parts[i] = "`" + p + "`"
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(Columns, ", "), strings.Join(parts, "."), ColDatetime), nil
}

// checkClickHouseTypes accepts DateTime/DateTime64 timestamps and Float64
// prices, Nullable or not.
func checkClickHouseTypes(types map[string]string) error {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	if err := requireColumns(names); err != nil {
		return err
	}

	for _, name := range Columns {
		t := strings.TrimSuffix(strings.TrimPrefix(types[name], "Nullable("), ")")
		var ok bool
		if name == ColDatetime {
			ok = strings.HasPrefix(t, "DateTime")
		} else {
			ok = t == "Float64"
		}
		if !ok {
			return core.WrapError(core.ErrSchemaInvalid,
				fmt.Errorf("column %s has unsupported type %s", name, types[name]))
		}
	}
	return nil
}

func (c *ClickHouse) Next(ctx context.Context) (core.Bar, error) {
	if err := ctx.Err(); err != nil {
		return core.Bar{}, err
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return core.Bar{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("row %d: %w", c.row, err))
		}
		return core.Bar{}, io.EOF
	}

	var ts *time.Time
	var vals [8]*float64
	dest := []any{&ts}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := c.rows.Scan(dest...); err != nil {
		return core.Bar{}, core.WrapError(core.ErrSourceFailed, fmt.Errorf("scanning row %d: %w", c.row, err))
	}
	if ts == nil {
		return core.Bar{}, core.WrapError(core.ErrSchemaInvalid, fmt.Errorf("row %d: null %s", c.row, ColDatetime))
	}

	var prices [8]core.Price
	for i, v := range vals {
		if v != nil {
			prices[i] = core.Some(*v)
		}
	}
	c.row++

	bar := barFromPrices(prices)
	bar.Time = *ts
	return bar, nil
}

func (c *ClickHouse) Close() error {
	rerr := c.rows.Close()
	if err := c.conn.Close(); err != nil {
		return err
	}
	return rerr
}
