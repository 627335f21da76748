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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// LoadedSymbol is a symbol of an object after it has been placed in memory.
type LoadedSymbol struct {
	Name string
	Addr uintptr
	Size uint64
}

// Listener is notified about objects placed in memory. External profilers
// and debuggers use this to attribute addresses in generated code.
type Listener interface {
	ObjectLoaded(name string, symbols []LoadedSymbol)
	ObjectFreed(name string)
}

// PerfMapListener writes symbols in the format of the perf tool's map files.
type PerfMapListener struct {
	crit sync.Mutex
	w    io.Writer
	c    io.Closer
}

// NewPerfMapListener creates a listener writing to the perf map file of the
// current process in dir.
func NewPerfMapListener(dir string) (*PerfMapListener, error) {
	pth := filepath.Join(dir, fmt.Sprintf("perf-%d.map", os.Getpid()))
	f, err := os.OpenFile(pth, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jit: perf map: %w", err)
	}
	return &PerfMapListener{w: f, c: f}, nil
}

// NewPerfMapWriter creates a listener writing to w.
func NewPerfMapWriter(w io.Writer) *PerfMapListener {
	return &PerfMapListener{w: w}
}

// ObjectLoaded implements the Listener interface.
func (l *PerfMapListener) ObjectLoaded(_ string, symbols []LoadedSymbol) {
	l.crit.Lock()
	defer l.crit.Unlock()
	for _, s := range symbols {
		fmt.Fprintf(l.w, "%x %x %s\n", s.Addr, s.Size, s.Name)
	}
}

// ObjectFreed implements the Listener interface. Perf maps have no way of
// removing entries.
func (l *PerfMapListener) ObjectFreed(_ string) {
}

// Close the underlying file, if there is one.
func (l *PerfMapListener) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}
