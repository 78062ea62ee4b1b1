package query

import (
	"fmt"
	"sort"
	"sync"

	"github.com/arthur-debert/pipestore/types"
)

// MacroFunc extends the builder with a named, reusable composition.
type MacroFunc func(b *Builder, args ...any) *Builder

var macros = struct {
	sync.RWMutex
	funcs map[string]MacroFunc
}{funcs: make(map[string]MacroFunc)}

// RegisterMacro makes fn callable on every builder through Macro. Register
// macros during start-up; a later registration replaces an earlier one.
func RegisterMacro(name string, fn MacroFunc) {
	macros.Lock()
	defer macros.Unlock()
	macros.funcs[name] = fn
}

// Macros returns the registered macro names, sorted.
func Macros() []string {
	macros.RLock()
	defer macros.RUnlock()
	names := make([]string, 0, len(macros.funcs))
	for name := range macros.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Macro runs the registered macro name against b.
func (b *Builder) Macro(name string, args ...any) *Builder {
	macros.RLock()
	fn, ok := macros.funcs[name]
	macros.RUnlock()
	if !ok {
		return b.fail(fmt.Errorf("%w: query macro %q", types.ErrUndefinedExtension, name))
	}
	if next := fn(b, args...); next != nil {
		return next
	}
	return b
}
