package observer

// Hook names a lifecycle notification delivered to a Component.
type Hook string

const (
	HookBeforeCreate  Hook = "beforeCreate"
	HookCreated       Hook = "created"
	HookBeforeMount   Hook = "beforeMount"
	HookMounted       Hook = "mounted"
	HookBeforeUpdate  Hook = "beforeUpdate"
	HookUpdated       Hook = "updated"
	HookActivated     Hook = "activated"
	HookDeactivated   Hook = "deactivated"
	HookBeforeDestroy Hook = "beforeDestroy"
	HookDestroyed     Hook = "destroyed"
)

// Keyed is anything a dotted path expression can walk through.
type Keyed interface {
	Get(key string) any
}

// Component is the view of a component instance the reactive core needs. The
// instance package provides the standard implementation.
type Component interface {
	Keyed

	Name() string
	Parent() Component

	// RenderWatcher is the watcher created for the component's render
	// function, nil until mounted.
	RenderWatcher() *Watcher
	IsMounted() bool
	IsDestroyed() bool
	IsBeingDestroyed() bool

	AddWatcher(w *Watcher)
	RemoveWatcher(w *Watcher)

	CallHook(h Hook)

	// Activate runs the activated hooks for the component and its inactive
	// subtree. direct is true when the component itself was toggled.
	Activate(direct bool)
	SetInactive(inactive bool)

	// ErrorCaptured is offered errors raised by descendants. Returning false
	// stops further propagation.
	ErrorCaptured(err error, vm Component, info string) bool
}
