package macros

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// aliasFile is the YAML shape of a static alias file.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Manager resolves macro names to R2 expressions. Two sources feed it:
//
//   - YAML alias files: plain name -> expression templates, with "$1".."$9"
//     placeholders substituted from the invocation arguments.
//   - Lua macro scripts: each macro is a Lua function registered via
//     r2.macro("name", fn); the function receives the invocation arguments
//     as strings and returns the expression to evaluate.
//
// Lua execution is sandboxed and capped at instLimit opcodes per
// expansion. The single LState is serialized by the mutex; lookups of
// YAML aliases never touch the VM.
type Manager struct {
	mu        sync.Mutex
	state     *lua.LState
	cancel    func()
	aliases   map[string]string
	luaMacros map[string]*lua.LFunction
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager with an empty macro set.
//
// Precondition: logger must be non-nil. instLimit <= 0 uses
// DefaultInstructionLimit.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	return &Manager{
		aliases:   make(map[string]string),
		luaMacros: make(map[string]*lua.LFunction),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadAliases reads a YAML alias file and merges its entries, overwriting
// existing aliases with the same name.
//
// Precondition: path must point to a readable YAML file.
func (m *Manager) LoadAliases(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("macros: reading alias file %q: %w", path, err)
	}
	var parsed aliasFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("macros: parsing alias file %q: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, expr := range parsed.Aliases {
		key := strings.ToLower(name)
		if key == "" || expr == "" {
			return fmt.Errorf("macros: alias file %q: empty name or expression", path)
		}
		m.aliases[key] = expr
	}
	return nil
}

// LoadScripts creates the sandboxed VM, registers the r2.macro function,
// and executes every *.lua file in dir in lexicographic order. Calling it
// again replaces the VM and all Lua macros.
//
// Precondition: dir must be a readable directory.
func (m *Manager) LoadScripts(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("macros: reading script dir %q: %w", dir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := newSandboxedState()
	registered := make(map[string]*lua.LFunction)

	r2mod := L.NewTable()
	L.SetGlobal("r2", r2mod)
	L.SetField(r2mod, "macro", L.NewFunction(func(L *lua.LState) int {
		name := strings.ToLower(L.CheckString(1))
		fn := L.CheckFunction(2)
		if name == "" {
			L.ArgError(1, "macro name must be non-empty")
			return 0
		}
		registered[name] = fn
		return 0
	}))

	ctx, cancel := newCountingContext(m.instLimit)
	L.SetContext(ctx)
	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("macros: loading %q: %w", path, err)
		}
	}
	cancel()

	m.mu.Lock()
	if m.state != nil {
		if m.cancel != nil {
			m.cancel()
		}
		m.state.Close()
	}
	m.state = L
	m.cancel = nil
	m.luaMacros = registered
	m.mu.Unlock()

	m.logger.Info("macros loaded",
		zap.String("dir", dir),
		zap.Int("count", len(registered)),
	)
	return nil
}

// Known reports whether name resolves to an alias or Lua macro.
func (m *Manager) Known(name string) bool {
	key := strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, alias := m.aliases[key]
	_, script := m.luaMacros[key]
	return alias || script
}

// Names returns all macro and alias names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	seen := make(map[string]bool, len(m.aliases)+len(m.luaMacros))
	for name := range m.aliases {
		seen[name] = true
	}
	for name := range m.luaMacros {
		seen[name] = true
	}
	m.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand resolves name with the given arguments into an R2 expression.
// Lua macros shadow YAML aliases of the same name.
//
// Postcondition: Returns a non-empty expression string, or an error when
// the macro is unknown, the Lua call fails, or the macro returns a
// non-string.
func (m *Manager) Expand(name string, args ...string) (string, error) {
	key := strings.ToLower(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if fn, ok := m.luaMacros[key]; ok {
		return m.expandLua(key, fn, args)
	}
	if expr, ok := m.aliases[key]; ok {
		return substituteArgs(expr, args), nil
	}
	return "", fmt.Errorf("macros: unknown macro %q", name)
}

// expandLua calls fn under a fresh instruction-count context.
// Precondition: m.mu held.
func (m *Manager) expandLua(name string, fn *lua.LFunction, args []string) (string, error) {
	L := m.state

	ctx, cancel := newCountingContext(m.instLimit)
	defer cancel()
	L.SetContext(ctx)

	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		luaArgs[i] = lua.LString(a)
	}
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, luaArgs...); err != nil {
		m.logger.Warn("macro Lua runtime error",
			zap.String("macro", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("macros: expanding %q: %w", name, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	str, ok := ret.(lua.LString)
	if !ok || str == "" {
		return "", fmt.Errorf("macros: macro %q returned %s, want a non-empty string", name, ret.Type())
	}
	return string(str), nil
}

// substituteArgs replaces "$1".."$9" placeholders with the corresponding
// argument; placeholders without a matching argument become empty.
func substituteArgs(expr string, args []string) string {
	for i := 1; i <= 9; i++ {
		placeholder := fmt.Sprintf("$%d", i)
		value := ""
		if i <= len(args) {
			value = args[i-1]
		}
		expr = strings.ReplaceAll(expr, placeholder, value)
	}
	return expr
}

// Close releases the Lua VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}
