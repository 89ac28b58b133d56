package evkore

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

type slot struct {
	id  ListenerID
	l   Listener
	key any // nil if identity is not comparable
}

// table holds the listeners of one event type. Tables are never modified once
// they are published in a System. Changes create a modified copy so that
// dispatch can run on a snapshot without holding locks.
type table struct {
	slots []slot
	live  *bitset.BitSet
}

func (t *table) len() int {
	if t == nil {
		return 0
	}
	return int(t.live.Count())
}

func (t *table) find(key any) (int, bool) {
	if t == nil || key == nil {
		return -1, false
	}
	for i, ok := t.live.NextSet(0); ok; i, ok = t.live.NextSet(i + 1) {
		if s := &t.slots[i]; s.key != nil && s.key == key {
			return int(i), true
		}
	}
	return -1, false
}

func (t *table) findID(id ListenerID) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, ok := t.live.NextSet(0); ok; i, ok = t.live.NextSet(i + 1) {
		if t.slots[i].id == id {
			return int(i), true
		}
	}
	return -1, false
}

func (t *table) clone() *table {
	if t == nil {
		return &table{live: bitset.New(0)}
	}
	return &table{
		slots: slices.Clone(t.slots),
		live:  t.live.Clone(),
	}
}

// with returns a copy of t that also holds s. Free slots are reused.
func (t *table) with(s slot) *table {
	res := t.clone()
	i, ok := res.live.NextClear(0)
	if !ok || int(i) >= len(res.slots) {
		i = uint(len(res.slots))
		res.slots = append(res.slots, s)
	} else {
		res.slots[i] = s
	}
	res.live.Set(i)
	return res
}

// without returns a copy of t without the listener in slot i. If no listener
// remains nil is returned.
func (t *table) without(i int) *table {
	if t.len() <= 1 {
		return nil
	}
	res := t.clone()
	res.slots[i] = slot{}
	res.live.Clear(uint(i))
	return res
}

func (t *table) each(do func(*slot)) {
	if t == nil {
		return
	}
	for i, ok := t.live.NextSet(0); ok; i, ok = t.live.NextSet(i + 1) {
		do(&t.slots[i])
	}
}

func (t *table) deliver(event any) (n int, err error) {
	if t == nil {
		return 0, nil
	}
	var cur *slot
	defer func() {
		if p := recover(); p != nil {
			err = &ListenerPanic{ID: cur.id, Event: event, Value: p}
		}
	}()
	for i, ok := t.live.NextSet(0); ok; i, ok = t.live.NextSet(i + 1) {
		cur = &t.slots[i]
		cur.l.Accept(event)
		n++
	}
	return n, nil
}
