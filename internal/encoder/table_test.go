package encoder

import (
	"errors"
	"testing"
)

func TestNewTableIsBijection(t *testing.T) {
	r := seeded(42, 43)
	for i := 0; i < 1000; i++ {
		tbl := NewTable(r)
		var seen [TableSize]int
		for _, v := range tbl {
			seen[v]++
		}
		for v, n := range seen {
			if n != 1 {
				t.Fatalf("draw %d: value %d appears %d times", i, v, n)
			}
		}
	}
}

func TestNewTableVaries(t *testing.T) {
	r := seeded(1, 99)
	first := NewTable(r)
	second := NewTable(r)
	if first == second {
		t.Fatal("consecutive tables are identical")
	}
	if first == Identity() {
		t.Fatal("shuffle produced the identity table")
	}
}

func TestTableInverse(t *testing.T) {
	tbl := NewTable(seeded(5, 5))
	inv := tbl.Inverse()
	for i := 0; i < TableSize; i++ {
		if inv[tbl[i]] != byte(i) {
			t.Fatalf("inverse[table[%d]] = %d", i, inv[tbl[i]])
		}
		if tbl[inv[i]] != byte(i) {
			t.Fatalf("table[inverse[%d]] = %d", i, tbl[inv[i]])
		}
	}
}

func TestTableFromBytes(t *testing.T) {
	tbl := NewTable(seeded(2, 3))
	got, err := TableFromBytes(tbl.Bytes())
	if err != nil {
		t.Fatalf("TableFromBytes: %v", err)
	}
	if got != tbl {
		t.Fatal("table did not survive Bytes/TableFromBytes")
	}

	if _, err := TableFromBytes(make([]byte, 255)); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("short table: expected ErrInvalidTable, got %v", err)
	}
	if _, err := TableFromBytes(make([]byte, 256)); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("all-zero table: expected ErrInvalidTable, got %v", err)
	}
}

func TestTableBytesIsCopy(t *testing.T) {
	tbl := Identity()
	b := tbl.Bytes()
	b[0] = 0xFF
	if tbl[0] != 0 {
		t.Fatal("Bytes exposed the table's backing array")
	}
}
