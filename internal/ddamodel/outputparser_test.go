package ddamodel

import (
	"strings"
	"testing"
)

func TestParseOutputMinimalRow(t *testing.T) {
	// window_start=0 window_end=100, one entity, stride 4.
	input := "0 100 1.0 2.0 3.0 0.1\n"
	rows, err := ParseOutput(strings.NewReader(input), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if len(rows[0].Entities) != 1 {
		t.Fatalf("numEntities = %d, want 1", len(rows[0].Entities))
	}
}

func TestParseOutputTwoEntities(t *testing.T) {
	input := "0 100 1.0 2.0 3.0 0.1 4.0 5.0 6.0 0.2\n"
	rows, err := ParseOutput(strings.NewReader(input), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || len(rows[0].Entities) != 2 {
		t.Fatalf("got %d rows, %d entities, want 1 row 2 entities", len(rows), len(rows[0].Entities))
	}
	if rows[0].Entities[0][0] != 1.0 || rows[0].Entities[1][0] != 4.0 {
		t.Fatalf("unexpected entity values: %v", rows[0].Entities)
	}
	if rows[0].Entities[0][3] != 0.1 || rows[0].Entities[1][3] != 0.2 {
		t.Fatalf("unexpected error-column values: %v", rows[0].Entities)
	}

	q := BuildQMatrix(rows)
	if len(q) != 2 || q[0][0] != 1.0 || q[1][0] != 4.0 {
		t.Fatalf("unexpected Q matrix: %v", q)
	}
}

func TestParseOutputSkipsCommentsAndBlanks(t *testing.T) {
	input := "# comment\n\n0 100 1.0 2.0 3.0 0.1\n"
	rows, err := ParseOutput(strings.NewReader(input), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
}

func TestParseOutputEmptyIsError(t *testing.T) {
	if _, err := ParseOutput(strings.NewReader("# only comments\n\n"), 4); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestParseOutputBadStrideIsError(t *testing.T) {
	if _, err := ParseOutput(strings.NewReader("0 100 1.0 2.0 3.0\n"), 4); err == nil {
		t.Fatal("expected error: data columns not a multiple of stride")
	}
}
