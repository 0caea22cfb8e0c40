package instance

import (
	"regexp"
	"slices"
	"strings"

	"github.com/delaneyj/watchparty/observer"
)

// Pattern matches component names for KeepAlive's include and exclude lists.
type Pattern struct {
	names []string
	re    *regexp.Regexp
}

// Names matches any of the given names. Each argument may itself be a comma
// separated list.
func Names(names ...string) *Pattern {
	p := &Pattern{}
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				p.names = append(p.names, part)
			}
		}
	}
	return p
}

func Regexp(re *regexp.Regexp) *Pattern {
	return &Pattern{re: re}
}

func (p *Pattern) Matches(name string) bool {
	switch {
	case p == nil:
		return false
	case p.re != nil:
		return p.re.MatchString(name)
	default:
		return slices.Contains(p.names, name)
	}
}

type KeepAliveOption func(*KeepAlive)

// WithInclude caches only components whose name matches p.
func WithInclude(p *Pattern) KeepAliveOption {
	return func(k *KeepAlive) {
		k.state.Put("include", p)
	}
}

// WithExclude never caches components whose name matches p.
func WithExclude(p *Pattern) KeepAliveOption {
	return func(k *KeepAlive) {
		k.state.Put("exclude", p)
	}
}

// KeepAlive caches component instances by key so switching between them
// deactivates and re-activates instead of destroying. With max > 0 the least
// recently shown entry is destroyed once the cache grows past max. Components
// filtered out by include/exclude are shown uncached and destroyed when
// switched away from.
type KeepAlive struct {
	owner   *Instance
	max     int
	cache   map[string]*Instance
	keys    []string
	current string
	// uncached is the active component when it is not in the cache.
	uncached *Instance

	state   *observer.Object
	unwatch []func()
}

func NewKeepAlive(owner *Instance, max int, opts ...KeepAliveOption) *KeepAlive {
	k := &KeepAlive{
		owner: owner,
		max:   max,
		cache: map[string]*Instance{},
		state: observer.ObjectOf("include", (*Pattern)(nil), "exclude", (*Pattern)(nil)),
	}
	for _, opt := range opts {
		opt(k)
	}
	owner.rt.Observe(k.state, false)

	k.unwatch = append(k.unwatch,
		owner.Watch(func(*Instance) any { return k.state.Get("include") }, func(n, _ any) error {
			p, _ := n.(*Pattern)
			if p != nil {
				k.pruneWhere(func(name string) bool { return !p.Matches(name) })
			}
			return nil
		}, WatchOptions{}),
		owner.Watch(func(*Instance) any { return k.state.Get("exclude") }, func(n, _ any) error {
			p, _ := n.(*Pattern)
			k.pruneWhere(p.Matches)
			return nil
		}, WatchOptions{}),
	)
	return k
}

// SetInclude replaces the include pattern. Cached entries that no longer
// match are pruned at the next flush. nil includes everything.
func (k *KeepAlive) SetInclude(p *Pattern) {
	k.state.Put("include", p)
}

// SetExclude replaces the exclude pattern. nil excludes nothing.
func (k *KeepAlive) SetExclude(p *Pattern) {
	k.state.Put("exclude", p)
}

func (k *KeepAlive) matches(name string) bool {
	include, _ := k.state.Get("include").(*Pattern)
	exclude, _ := k.state.Get("exclude").(*Pattern)
	if include != nil && !include.Matches(name) {
		return false
	}
	return !exclude.Matches(name)
}

// Show makes the instance cached under key the active one, creating it with
// create on a miss.
func (k *KeepAlive) Show(key string, create func() *Instance) *Instance {
	if key == k.current {
		if k.uncached != nil {
			return k.uncached
		}
		if vm, ok := k.cache[key]; ok {
			return vm
		}
	}
	if k.uncached != nil {
		k.uncached.Destroy()
		k.uncached = nil
	} else if cur, ok := k.cache[k.current]; ok {
		cur.Deactivate(true)
	}
	k.current = key

	vm, ok := k.cache[key]
	if ok && !k.matches(vm.Name()) {
		vm.Destroy()
		k.forget(key)
		ok = false
	}
	if ok {
		if i := slices.Index(k.keys, key); i >= 0 {
			k.keys = slices.Delete(k.keys, i, i+1)
		}
		k.keys = append(k.keys, key)
	} else {
		vm = create()
		if !k.matches(vm.Name()) {
			k.uncached = vm
			return vm
		}
		k.cache[key] = vm
		k.keys = append(k.keys, key)
		if k.max > 0 && len(k.keys) > k.max {
			k.Prune(k.keys[0])
		}
	}

	rt := k.owner.rt
	if k.owner.mounted && rt.Flushing() {
		rt.QueueActivatedComponent(vm)
	} else {
		vm.Activate(true)
	}
	return vm
}

// Current returns the key of the active entry.
func (k *KeepAlive) Current() string {
	return k.current
}

func (k *KeepAlive) Keys() []string {
	return slices.Clone(k.keys)
}

// Prune destroys and forgets the entry under key unless it is the active one.
func (k *KeepAlive) Prune(key string) {
	vm, ok := k.cache[key]
	if !ok || key == k.current {
		return
	}
	vm.Destroy()
	k.forget(key)
}

// pruneWhere drops every cached entry whose component name satisfies drop.
// The active entry leaves the cache but stays alive until switched away from.
func (k *KeepAlive) pruneWhere(drop func(name string) bool) {
	for _, key := range k.Keys() {
		vm := k.cache[key]
		if !drop(vm.Name()) {
			continue
		}
		if key == k.current {
			k.forget(key)
			k.uncached = vm
			continue
		}
		k.Prune(key)
	}
}

func (k *KeepAlive) forget(key string) {
	delete(k.cache, key)
	if i := slices.Index(k.keys, key); i >= 0 {
		k.keys = slices.Delete(k.keys, i, i+1)
	}
}

// Destroy destroys every cached instance and stops watching the patterns.
func (k *KeepAlive) Destroy() {
	for _, stop := range k.unwatch {
		stop()
	}
	k.unwatch = nil
	for _, key := range k.Keys() {
		k.cache[key].Destroy()
	}
	if k.uncached != nil {
		k.uncached.Destroy()
		k.uncached = nil
	}
	clear(k.cache)
	k.keys = nil
	k.current = ""
}
