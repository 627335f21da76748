// This file is part of Cellforge.
//
// Cellforge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellforge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellforge.  If not, see <https://www.gnu.org/licenses/>.

package jit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/cellforge/cellforge/debugger/govern"
	"github.com/cellforge/cellforge/jit/fault"
	"github.com/cellforge/cellforge/jit/memmgr"
	"github.com/cellforge/cellforge/jit/objcache"
	"github.com/cellforge/cellforge/jit/object"
	"github.com/cellforge/cellforge/jit/stubs"
	"github.com/cellforge/cellforge/jit/target"
	"github.com/cellforge/cellforge/jit/vmem"
	"github.com/cellforge/cellforge/logger"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors.
var (
	ErrNotActive    = errors.New("jit: compiler is not active")
	ErrNotFinalized = errors.New("jit: compiler has pending relocations")
	ErrNoSymbol     = errors.New("jit: no such symbol")
)

// Options for New().
type Options struct {
	// symbols provided by the embedding application. a compiler with no link
	// table is an auxiliary compiler
	LinkTable map[string]uintptr

	// symbols owned by the host application resolved on demand
	Cement func(name string) uintptr

	// process-wide stub table. may be nil
	Stubs *stubs.Table

	// address space for the main compiler's memory manager. nil means the
	// host platform
	Platform  vmem.Platform
	BlockSize uint64

	// allocator shared by auxiliary compilers. required for auxiliary
	// compilers
	Arena memmgr.Arena

	// auxiliary compilers normally don't register listeners
	Observe   bool
	Listeners []Listener

	// nil means AssemblerBackend
	Backend Backend

	Target target.Options

	// budget shared by all cache writes. if nil and CacheDir is set the
	// budget is taken from the free space of the volume containing CacheDir
	Budget         *objcache.Budget
	CacheDir       string
	BudgetFraction float64

	// handler installed for fatal errors the first time any compiler is
	// created. nil means log fatal errors
	FatalHandler func(error)
}

type reloc struct {
	object.Relocation
	site    uintptr
	applied bool
}

// Compiler is the JIT compiler facade.
type Compiler struct {
	crit sync.Mutex

	state     govern.CompilerState
	auxiliary bool
	machine   target.Machine
	backend   Backend
	mem       memmgr.Manager
	budget    *objcache.Budget
	listeners []Listener

	// explicit symbol mappings. these take precedence over everything
	globals map[string]uintptr

	// symbols defined by loaded objects
	symbols map[string]LoadedSymbol

	// names of loaded objects in load order
	objects []string

	relocs  []*reloc
	pending int
}

// the placeholder module compiled to check the backend.
const placeholderModule = "__empty__"

func defaultFatalHandler(err error) {
	logger.Logf(logger.Allow, "jit", "fatal: %v", err)
}

// New creates a compiler. Failure to create the compiler is fatal.
func New(opts Options) (*Compiler, error) {
	h := opts.FatalHandler
	if h == nil {
		h = defaultFatalHandler
	}
	fault.InstallHandler(h)

	c := &Compiler{
		state:     govern.Uninitialized,
		auxiliary: len(opts.LinkTable) == 0,
		backend:   opts.Backend,
		budget:    opts.Budget,
		globals:   make(map[string]uintptr),
		symbols:   make(map[string]LoadedSymbol),
	}
	if c.backend == nil {
		c.backend = AssemblerBackend{}
	}

	c.machine = target.Detect(opts.Target)

	if c.budget == nil && opts.CacheDir != "" {
		frac := opts.BudgetFraction
		if frac == 0 {
			frac = objcache.DefaultBudgetFraction
		}
		var err error
		c.budget, err = objcache.NewBudgetFromVolume(opts.CacheDir, frac)
		if err != nil {
			logger.Logf(logger.Allow, "jit", "object cache disabled: %v", err)
		}
	}

	// initialise the backend with an empty module
	err := fault.Guard(func() error {
		_, err := c.backend.Compile(NewModule(placeholderModule), c.machine)
		return err
	})
	if err != nil {
		return nil, fault.Errorf("jit: engine construction: %w", err)
	}

	resolver := memmgr.Resolver{
		LinkTable: opts.LinkTable,
		Cement:    opts.Cement,
		Stubs:     opts.Stubs,
	}

	if c.auxiliary {
		if opts.Arena == nil {
			return nil, fault.Errorf("jit: engine construction: auxiliary compiler has no arena")
		}
		c.mem = memmgr.NewDelegate(opts.Arena, resolver)
		if opts.Observe {
			c.listeners = opts.Listeners
		}
	} else {
		plt := opts.Platform
		if plt == nil {
			plt, err = vmem.Host()
			if err != nil {
				return nil, fault.Errorf("jit: engine construction: %w", err)
			}
		}
		c.mem, err = memmgr.NewReserved(plt, opts.BlockSize, resolver)
		if err != nil {
			return nil, fault.Errorf("jit: engine construction: %w", err)
		}
		for name, addr := range opts.LinkTable {
			c.globals[name] = addr
		}
		c.listeners = opts.Listeners
	}

	c.state = govern.Active
	logger.Logf(logger.Allow, "jit", "compiler created for %s", c.machine)

	return c, nil
}

// State returns the current state of the compiler.
func (c *Compiler) State() govern.CompilerState {
	c.crit.Lock()
	defer c.crit.Unlock()
	return c.state
}

// Machine returns the target machine description.
func (c *Compiler) Machine() target.Machine {
	return c.machine
}

// Auxiliary returns true if the compiler was created without a link table.
func (c *Compiler) Auxiliary() bool {
	return c.auxiliary
}

// Budget returns the budget used for cache writes. May be nil.
func (c *Compiler) Budget() *objcache.Budget {
	return c.budget
}

// MemoryStats returns the block statistics of the memory manager. Auxiliary
// compilers return nil.
func (c *Compiler) MemoryStats() []memmgr.BlockStats {
	if r, ok := c.mem.(*memmgr.Reserved); ok {
		return r.Stats()
	}
	return nil
}

// compile the module, write it to the cache if a cache path is specified and
// release the module.
func (c *Compiler) compile(m *Module, cachePath string) (*object.File, error) {
	var f *object.File
	err := fault.Guard(func() error {
		var err error
		f, err = c.backend.Compile(m, c.machine)
		return err
	})
	if err != nil {
		if fault.IsFatal(err) {
			return nil, err
		}
		return nil, fault.Errorf("jit: compile %s: %w", m.Name, err)
	}

	if cachePath != "" {
		cache := objcache.Cache{Path: cachePath, Budget: c.budget}
		b, err := f.MarshalBinary()
		if err != nil {
			logger.Logf(logger.Allow, "jit", "%s: not cached: %v", m.Name, err)
		} else {
			cache.OnCompiled(m.Name, b)
		}
	}

	m.Release()
	return f, nil
}

// Add compiles the module and loads it. The compiled object is written to the
// object cache at cachePath. The module is released.
func (c *Compiler) Add(m *Module, cachePath string) error {
	if c.State() != govern.Active {
		return ErrNotActive
	}
	f, err := c.compile(m, cachePath)
	if err != nil {
		return err
	}
	return c.load(f)
}

// AddUncached compiles the module and loads it without writing it to the
// object cache. The module is released.
func (c *Compiler) AddUncached(m *Module) error {
	return c.Add(m, "")
}

// AddObject loads a previously cached object. The path is the cache path
// plus the module name. Returns false if the object could not be read,
// parsed or loaded.
func (c *Compiler) AddObject(pth string) bool {
	if c.State() != govern.Active {
		return false
	}

	b, ok := objcache.Load(pth)
	if !ok {
		logger.Logf(logger.Allow, "jit", "%s: no cached object", pth)
		return false
	}
	f, err := object.Parse(b)
	if err != nil {
		logger.Logf(logger.Allow, "jit", "%s: %v", pth, err)
		return false
	}
	if err := c.load(f); err != nil {
		logger.Logf(logger.Allow, "jit", "%s: %v", pth, err)
		return false
	}
	return true
}

// AddAll compiles modules concurrently and then loads them in order.
func (c *Compiler) AddAll(ctx context.Context, modules []*Module, cachePath string) error {
	if c.State() != govern.Active {
		return ErrNotActive
	}

	files := make([]*object.File, len(modules))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range modules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := c.compile(m, cachePath)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, f := range files {
		if err := c.load(f); err != nil {
			return err
		}
	}
	return nil
}

func sectionKind(k object.SectionKind) memmgr.Kind {
	switch k {
	case object.Data:
		return memmgr.Data
	case object.ReadOnly:
		return memmgr.ReadOnly
	}
	return memmgr.Code
}

// load places the sections of the object in memory and records its symbols
// and relocations.
func (c *Compiler) load(f *object.File) error {
	c.crit.Lock()
	defer c.crit.Unlock()

	if c.state != govern.Active {
		return ErrNotActive
	}

	base := make([]uintptr, len(f.Sections))
	for i, s := range f.Sections {
		if len(s.Data) == 0 {
			continue
		}
		addr, err := c.mem.Allocate(sectionKind(s.Kind), uint64(len(s.Data)), uint64(s.Align))
		if err != nil {
			return fmt.Errorf("jit: load %s: %w", f.Name, err)
		}
		if err := c.mem.Write(addr, s.Data); err != nil {
			return fmt.Errorf("jit: load %s: %w", f.Name, err)
		}
		base[i] = addr
	}

	var loaded []LoadedSymbol
	for _, s := range f.Symbols {
		ls := LoadedSymbol{
			Name: s.Name,
			Addr: base[s.Section] + uintptr(s.Offset),
			Size: s.Size,
		}
		if _, ok := c.symbols[s.Name]; ok {
			logger.Logf(logger.Allow, "jit", "%s: redefinition of %s", f.Name, s.Name)
		}
		c.symbols[s.Name] = ls
		loaded = append(loaded, ls)
	}

	for _, r := range f.Relocations {
		c.relocs = append(c.relocs, &reloc{
			Relocation: r,
			site:       base[r.Section] + uintptr(r.Offset),
		})
		c.pending++
	}

	c.objects = append(c.objects, f.Name)

	for _, l := range c.listeners {
		l.ObjectLoaded(f.Name, loaded)
	}

	return nil
}

// UpdateGlobalMapping sets the address of a symbol. The mapping takes
// precedence over every other source of symbols. Relocations already applied
// for the symbol are applied again by the next call to Finalize().
func (c *Compiler) UpdateGlobalMapping(name string, addr uintptr) error {
	c.crit.Lock()
	defer c.crit.Unlock()

	if c.state != govern.Active {
		return ErrNotActive
	}

	c.globals[name] = addr
	for _, r := range c.relocs {
		if r.Symbol == name && r.applied {
			r.applied = false
			c.pending++
		}
	}
	return nil
}

// resolve the address of a symbol for relocation.
func (c *Compiler) resolve(name string) (uintptr, error) {
	if addr, ok := c.globals[name]; ok {
		return addr, nil
	}
	if s, ok := c.symbols[name]; ok {
		return s.Addr, nil
	}
	return c.mem.FindSymbol(name)
}

// Finalize applies every pending relocation. After a successful Finalize()
// all loaded code is ready to run.
func (c *Compiler) Finalize() error {
	c.crit.Lock()
	defer c.crit.Unlock()

	if c.state != govern.Active {
		return ErrNotActive
	}

	for _, r := range c.relocs {
		if r.applied {
			continue
		}

		addr, err := c.resolve(r.Symbol)
		if err != nil {
			return err
		}

		var b []byte
		switch r.Kind {
		case object.Abs64:
			b = binary.LittleEndian.AppendUint64(nil, uint64(int64(addr)+r.Addend))
		case object.Rel32:
			disp := int64(addr) + r.Addend - int64(r.site+4)
			if disp < math.MinInt32 || disp > math.MaxInt32 {
				return fault.Errorf("jit: relocation of %s at %#x out of range", r.Symbol, r.site)
			}
			b = binary.LittleEndian.AppendUint32(nil, uint32(int32(disp)))
		}

		if err := c.mem.Write(r.site, b); err != nil {
			return fault.Errorf("jit: relocation of %s at %#x: %w", r.Symbol, r.site, err)
		}

		r.applied = true
		c.pending--
	}

	return nil
}

// Get returns the address of a symbol. All relocations must have been applied
// by Finalize().
func (c *Compiler) Get(name string) (uintptr, error) {
	c.crit.Lock()
	defer c.crit.Unlock()

	if c.state != govern.Active {
		return 0, ErrNotActive
	}
	if c.pending > 0 {
		return 0, ErrNotFinalized
	}
	if s, ok := c.symbols[name]; ok {
		return s.Addr, nil
	}
	if addr, ok := c.globals[name]; ok {
		return addr, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNoSymbol, name)
}

// Symbols returns the symbols defined by loaded objects.
func (c *Compiler) Symbols() []LoadedSymbol {
	c.crit.Lock()
	defer c.crit.Unlock()
	s := make([]LoadedSymbol, 0, len(c.symbols))
	for _, ls := range c.symbols {
		s = append(s, ls)
	}
	return s
}

// Read generated code or data.
func (c *Compiler) Read(p []byte, addr uintptr) error {
	c.crit.Lock()
	defer c.crit.Unlock()
	if c.state != govern.Active {
		return ErrNotActive
	}
	return c.mem.Read(p, addr)
}

// Release drops all loaded objects and closes the memory manager. The
// compiler enters the Destroying state.
func (c *Compiler) Release() error {
	c.crit.Lock()
	defer c.crit.Unlock()

	if c.state == govern.Destroying {
		return nil
	}
	c.state = govern.Destroying

	for _, l := range c.listeners {
		for _, name := range c.objects {
			l.ObjectFreed(name)
		}
	}

	err := c.mem.Close()

	c.objects = nil
	c.symbols = nil
	c.globals = nil
	c.relocs = nil
	c.pending = 0
	c.listeners = nil

	return err
}
