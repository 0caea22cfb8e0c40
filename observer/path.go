package observer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var bailRE = regexp.MustCompile(`[^\w.$]`)

// ParsePath compiles a dotted path such as "a.b.0.c" into a function
// resolving it against a root. Segments walk through anything with a
// Get(string) method and through *Array indices. It returns nil for
// expressions that are not simple paths.
func (rt *Runtime) ParsePath(path string) func(root any) any {
	key := xxhash.Sum64String(path)
	segments, ok := rt.paths[key]
	if !ok {
		if bailRE.MatchString(path) {
			return nil
		}
		segments = strings.Split(path, ".")
		rt.paths[key] = segments
	}
	return func(root any) any {
		obj := root
		for _, seg := range segments {
			if obj == nil {
				return nil
			}
			obj = lookup(obj, seg)
		}
		return obj
	}
}

func lookup(obj any, seg string) any {
	switch o := obj.(type) {
	case *Array:
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil
		}
		return o.At(i)
	case Keyed:
		return o.Get(seg)
	default:
		return nil
	}
}
