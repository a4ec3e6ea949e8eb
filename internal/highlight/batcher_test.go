package highlight

import (
	"reflect"
	"slices"
	"strings"
	"testing"
)

func rowsOf(n, size int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = strings.Repeat("x", size)
	}
	return rows
}

func chunkSizes(chunks [][]string) []int {
	sizes := make([]int, len(chunks))
	for i, c := range chunks {
		sizes[i] = len(c)
	}
	return sizes
}

func TestBatcher_Chunks(t *testing.T) {
	b := NewBatcher(0, 0)

	tests := []struct {
		name  string
		rows  []string
		sizes []int
	}{
		{name: "no rows", rows: nil, sizes: []int{}},
		{name: "fewer rows than window", rows: rowsOf(2, 10), sizes: []int{2}},
		{name: "short rows grow into one chunk", rows: rowsOf(10, 10), sizes: []int{10}},
		{name: "long rows close at window", rows: rowsOf(7, 1500), sizes: []int{3, 3, 1}},
		{name: "rows reaching the limit exactly", rows: rowsOf(7, 999), sizes: []int{3, 3, 1}},
		{name: "window grows until max chars", rows: rowsOf(45, 99), sizes: []int{20, 20, 5}},
		{name: "exact multiple leaves no trailer", rows: rowsOf(6, 1500), sizes: []int{3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkSizes(b.Chunks(tt.rows))
			if !slices.Equal(got, tt.sizes) {
				t.Errorf("chunk sizes = %v, want %v", got, tt.sizes)
			}
		})
	}
}

func TestBatcher_PreservesOrder(t *testing.T) {
	rows := make([]string, 50)
	for i := range rows {
		rows[i] = strings.Repeat(string(rune('a'+i%26)), 30+i*7)
	}

	chunks := NewBatcher(3, 2000).Chunks(rows)

	var flat []string
	for i, c := range chunks {
		if i < len(chunks)-1 && len(c) < 3 {
			t.Errorf("chunk %d has %d rows, want at least 3", i, len(c))
		}
		flat = append(flat, c...)
	}
	if !slices.Equal(flat, rows) {
		t.Error("Concatenated chunks should equal the input rows")
	}

	if again := NewBatcher(3, 2000).Chunks(rows); !reflect.DeepEqual(again, chunks) {
		t.Error("Chunks should be deterministic")
	}
}

func TestBatcher_CustomWindow(t *testing.T) {
	b := NewBatcher(2, 100)
	if b.Window != 2 || b.MaxChars != 100 {
		t.Fatalf("NewBatcher = %+v", b)
	}

	got := chunkSizes(b.Chunks(rowsOf(5, 60)))
	if !slices.Equal(got, []int{2, 2, 1}) {
		t.Errorf("chunk sizes = %v", got)
	}
}
