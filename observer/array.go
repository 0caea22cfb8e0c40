package observer

import (
	"slices"
	"sort"
)

// Array is an ordered sequence container. Once observed, the seven
// structure-mutating operations notify the array's own Dep and make inserted
// elements reactive. Reading by index is never tracked; watchers depend on an
// array through the property that holds it.
type Array struct {
	items  []any
	ob     *Observer
	frozen bool
}

func NewArray(items ...any) *Array {
	return &Array{items: items}
}

// Observer returns the attached observer, nil if the array is not reactive.
func (a *Array) Observer() *Observer {
	return a.ob
}

func (a *Array) Len() int {
	return len(a.items)
}

// At returns the element at i, or nil when out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Items returns a copy of the elements.
func (a *Array) Items() []any {
	return slices.Clone(a.items)
}

func (a *Array) Freeze() *Array {
	a.frozen = true
	return a
}

func (a *Array) IsFrozen() bool {
	return a.frozen
}

func (a *Array) Push(items ...any) int {
	if a.frozen {
		return len(a.items)
	}
	a.items = append(a.items, items...)
	a.intercept(items)
	return len(a.items)
}

func (a *Array) Pop() any {
	if a.frozen {
		return nil
	}
	if len(a.items) == 0 {
		a.intercept(nil)
		return nil
	}
	last := a.items[len(a.items)-1]
	a.items[len(a.items)-1] = nil
	a.items = a.items[:len(a.items)-1]
	a.intercept(nil)
	return last
}

func (a *Array) Shift() any {
	if a.frozen {
		return nil
	}
	if len(a.items) == 0 {
		a.intercept(nil)
		return nil
	}
	first := a.items[0]
	a.items = slices.Delete(a.items, 0, 1)
	a.intercept(nil)
	return first
}

func (a *Array) Unshift(items ...any) int {
	if a.frozen {
		return len(a.items)
	}
	a.items = slices.Insert(a.items, 0, items...)
	a.intercept(items)
	return len(a.items)
}

// Splice removes deleteCount elements starting at start and inserts items in
// their place, returning the removed elements. A negative start counts from
// the end; out of range arguments are clamped.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	if a.frozen {
		return nil
	}
	n := len(a.items)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := slices.Clone(a.items[start : start+deleteCount])
	a.items = slices.Replace(a.items, start, start+deleteCount, items...)
	a.intercept(items)
	return removed
}

// Sort sorts in place with a stable sort. A nil less keeps the current order
// but still notifies, like sorting an already sorted sequence.
func (a *Array) Sort(less func(x, y any) bool) *Array {
	if a.frozen {
		return a
	}
	if less != nil {
		sort.SliceStable(a.items, func(i, j int) bool { return less(a.items[i], a.items[j]) })
	}
	a.intercept(nil)
	return a
}

func (a *Array) Reverse() *Array {
	if a.frozen {
		return a
	}
	slices.Reverse(a.items)
	a.intercept(nil)
	return a
}

func (a *Array) intercept(inserted []any) {
	ob := a.ob
	if ob == nil {
		return
	}
	if len(inserted) > 0 {
		ob.observeArray(inserted)
	}
	ob.dep.Notify()
}
