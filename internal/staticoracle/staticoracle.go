// Package staticoracle is a small, struct-literal-driven LayoutOracle
// (github.com/xyproto/transmute's front-end interface). It is a stand-in
// for whatever module graph a real embedding type-checker already
// tracks, used by the demo CLI and by this repo's own tests so they
// don't need a live compiler to exercise the checker (github.com/xyproto/transmute's
// own scope note: the core package never constructs a LayoutOracle on
// its own).
package staticoracle

import (
	"fmt"
	"sort"

	"github.com/xyproto/transmute"
	"github.com/xyproto/transmute/internal/engine"
)

// Module is one node of the oracle's module tree.
type Module struct {
	Name   string
	Parent string // "" marks a root module
}

// Oracle is a fixed target paired with a flat map of known modules. A
// field declared in module A is visible from module B exactly when B
// is A itself or an ancestor of A in this tree -- modeling a
// pub(in parent)-style visibility rather than Rust's default
// crate-private pub, since that is the shape the demo CLI's example
// types need.
type Oracle struct {
	target  engine.Target
	modules map[string]Module
}

// New returns an Oracle compiled against target, with no modules
// registered yet.
func New(target engine.Target) *Oracle {
	return &Oracle{target: target, modules: make(map[string]Module)}
}

// NativeAMD64 is the target description for a little-endian, 64-bit
// platform with natural pointer alignment -- the shape the demo CLI
// defaults to.
func NativeAMD64() engine.Target {
	return engine.Target{Endian: engine.LittleEndian, PointerSize: 8, PointerAlign: 8}
}

// AddModule registers name as a child of parent ("" for a root
// module). It overwrites any prior registration of the same name.
func (o *Oracle) AddModule(name, parent string) {
	o.modules[name] = Module{Name: name, Parent: parent}
}

// TargetDescription implements transmute.LayoutOracle.
func (o *Oracle) TargetDescription() engine.Target {
	return o.target
}

// ParentModule implements transmute.LayoutOracle.
func (o *Oracle) ParentModule(child transmute.Scope) (transmute.Scope, bool) {
	m, ok := o.modules[string(child)]
	if !ok || m.Parent == "" {
		return "", false
	}
	return transmute.Scope(m.Parent), true
}

// VisibleFrom implements transmute.LayoutOracle.
func (o *Oracle) VisibleFrom(defining, viewer transmute.Scope) (bool, error) {
	if defining == viewer {
		return true, nil
	}
	if _, ok := o.modules[string(defining)]; !ok {
		return false, fmt.Errorf("unknown scope %q", defining)
	}
	if _, ok := o.modules[string(viewer)]; !ok {
		return false, fmt.Errorf("unknown scope %q", viewer)
	}
	for cur := defining; ; {
		parent, ok := o.ParentModule(cur)
		if !ok {
			return false, nil
		}
		if parent == viewer {
			return true, nil
		}
		cur = parent
	}
}

// ScopeNames implements transmute.LayoutOracle.
func (o *Oracle) ScopeNames() []string {
	names := make([]string, 0, len(o.modules))
	for name := range o.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
