package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/newthinker/crossover/internal/core"
)

func barsAt(mins ...int) []core.Bar {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, len(mins))
	for i, m := range mins {
		bars[i] = core.Bar{Time: start.Add(time.Duration(m) * time.Minute)}
	}
	return bars
}

func TestMemory(t *testing.T) {
	m := NewMemory(barsAt(0, 1, 2))
	if n := len(readAll(t, m)); n != 3 {
		t.Errorf("got %d bars, want 3", n)
	}

	if _, err := m.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after the last bar, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOrdered_PassesIncreasing(t *testing.T) {
	o := NewOrdered(NewMemory(barsAt(0, 1, 5, 6)))
	if n := len(readAll(t, o)); n != 4 {
		t.Errorf("got %d bars, want 4", n)
	}
}

func TestOrdered_RejectsOutOfOrder(t *testing.T) {
	tests := []struct {
		name  string
		mins  []int
		index int
	}{
		{"duplicate", []int{0, 1, 1, 2}, 2},
		{"backwards", []int{0, 3, 2}, 2},
		{"second bar", []int{5, 4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrdered(NewMemory(barsAt(tt.mins...)))

			var err error
			n := 0
			for ; ; n++ {
				if _, err = o.Next(context.Background()); err != nil {
					break
				}
			}
			if !errors.Is(err, core.ErrDataOrder) {
				t.Fatalf("expected DATA_ORDER, got %v", err)
			}
			if n != tt.index {
				t.Errorf("failed at bar %d, want %d", n, tt.index)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	path := writeParquet(t, Columns, 3)
	r, err := Open(context.Background(), Options{Type: "parquet", Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if _, ok := r.(*Ordered); !ok {
		t.Errorf("expected ordered wrapper, got %T", r)
	}
	if n := len(readAll(t, r)); n != 3 {
		t.Errorf("got %d bars, want 3", n)
	}

	if _, err := Open(context.Background(), Options{Type: "xlsx"}); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}
