package observer

import mapset "github.com/deckarep/golang-set/v2"

// traverse reads every nested slot of v so the current target depends on all
// of them. Each observed container is visited once; frozen ones are skipped.
func traverse(v any) {
	walkDeep(v, newIDSet())
}

func walkDeep(v any, seen mapset.Set[uint64]) {
	switch c := v.(type) {
	case *Object:
		if c == nil || c.frozen {
			return
		}
		if c.ob != nil && !seen.Add(c.ob.dep.id) {
			return
		}
		for _, k := range c.Keys() {
			walkDeep(c.Get(k), seen)
		}
	case *Array:
		if c == nil || c.frozen {
			return
		}
		if c.ob != nil && !seen.Add(c.ob.dep.id) {
			return
		}
		for _, item := range c.items {
			walkDeep(item, seen)
		}
	}
}
