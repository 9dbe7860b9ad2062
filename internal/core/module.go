package core

// ModuleID uniquely identifies a module, namespaced by dots
// (e.g. "channel.discord", "mcp.server").
type ModuleID string

// Namespace returns the portion of the ID before the first dot, or the whole
// ID when it has no namespace.
func (id ModuleID) Namespace() string {
	for i, r := range id {
		if r == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every module implements. Optional
// lifecycle behavior comes from the interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
