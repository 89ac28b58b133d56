package evkore

import (
	"testing"
)

func Test_table_copyOnWrite(t *testing.T) {
	var empty *table
	if empty.len() != 0 {
		t.Fatal("nil table not empty")
	}
	t1 := empty.with(slot{id: 1})
	t2 := t1.with(slot{id: 2})
	if t1.len() != 1 || t2.len() != 2 {
		t.Fatalf("unexpected lengths %d, %d", t1.len(), t2.len())
	}
	t3 := t2.without(0)
	if t2.len() != 2 {
		t.Error("without modified original table")
	}
	if i, ok := t3.findID(2); !ok || i != 1 {
		t.Errorf("id 2 at %d/%t", i, ok)
	}
	if _, ok := t3.findID(1); ok {
		t.Error("removed id still found")
	}
	if t3.without(1) != nil {
		t.Error("table without last listener is not nil")
	}
}

func Test_table_find(t *testing.T) {
	tbl := (*table)(nil).
		with(slot{id: 1, key: "a"}).
		with(slot{id: 2}).
		with(slot{id: 3, key: "c"})
	if i, ok := tbl.find("c"); !ok || i != 2 {
		t.Errorf("found c at %d/%t", i, ok)
	}
	if _, ok := tbl.find(nil); ok {
		t.Error("found nil key")
	}
	if _, ok := tbl.find(3); ok {
		t.Error("found key of other type")
	}
}
