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

// Package objcache persists compiled objects to disk so that unchanged modules
// do not need to be compiled again.
//
// Entries are written as gzip files named after the module, so that they can
// be inspected with standard tools. Every write is charged to a Budget shared
// by all writers of a compiler instance.
//
// Failure to write an entry is logged and otherwise ignored. Failure to load
// an entry is a cache miss. An entry that fails validation is deleted.
package objcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cellforge/cellforge/jit/object"
	"github.com/cellforge/cellforge/logger"
	"github.com/klauspost/compress/gzip"
)

// Extension of compressed cache entries.
const Extension = ".gz"

// reservation factor applied to the uncompressed size before writing.
const reserveFactor = 4

// largest size hint taken from the gzip trailer.
const maxSizeHint = 64 << 20

// Cache writes compiled objects. Path is the prefix of every entry, usually a
// directory name ending in a path separator.
//
// An entry is named <Path><module>.gz. Entries are not also keyed by a unit
// name: a module name is unique across every unit sharing the cache, so the
// unit would be redundant in the file name. A unit that wants its own
// namespace can add it to Path, for example "cache/unit.".
type Cache struct {
	Path   string
	Budget *Budget
}

// EntryPath returns the path of the compressed entry for the module.
func (c *Cache) EntryPath(module string) string {
	return c.Path + module + Extension
}

// OnCompiled writes the compiled object for the module to the cache.
func (c *Cache) OnCompiled(module string, obj []byte) {
	pth := c.EntryPath(module)

	if len(obj) == 0 {
		logger.Logf(logger.Allow, "objcache", "%s: nothing to cache", module)
		return
	}

	reserved := uint64(len(obj)) * reserveFactor
	if c.Budget == nil || !c.Budget.Reserve(reserved) {
		logger.Logf(logger.Allow, "objcache", "%s: insufficient disk budget for %d bytes", module, reserved)
		return
	}

	written, err := c.write(pth, obj)
	if err != nil {
		logger.Logf(logger.Allow, "objcache", "%s: %v", module, err)
		return
	}

	if written <= reserved {
		if err := c.Budget.Release(reserved - written); err != nil {
			logger.Logf(logger.Allow, "objcache", "%s: %v", module, err)
		}
		return
	}

	// very small objects can grow when compressed
	if !c.Budget.Reserve(written - reserved) {
		logger.Logf(logger.Allow, "objcache", "%s: insufficient disk budget for %d bytes", module, written)
		_ = os.Remove(pth)
	}
}

// write the compressed object to a temporary file and rename it into place.
// returns the size of the compressed file.
func (c *Cache) write(pth string, obj []byte) (uint64, error) {
	dir, base := filepath.Split(pth)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return 0, err
	}

	var committed bool
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	zw.Name = filepath.Base(pth)
	if _, err := zw.Write(obj); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(f.Name(), pth); err != nil {
		return 0, err
	}
	committed = true

	return uint64(fi.Size()), nil
}

// Load reads a cache entry. The compressed form (path plus Extension) is tried
// first, followed by the uncompressed legacy form. Returns false if neither
// exists or is usable.
func Load(pth string) ([]byte, bool) {
	if b, err := os.ReadFile(pth + Extension); err == nil {
		if len(b) == 0 {
			return nil, false
		}
		obj, err := decompress(b)
		if err != nil {
			logger.Logf(logger.Allow, "objcache", "error: %s: %v", pth+Extension, err)
			return nil, false
		}
		if len(obj) == 0 {
			return nil, false
		}
		return obj, true
	}

	b, err := os.ReadFile(pth)
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func decompress(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	// the gzip trailer records the uncompressed size modulo 2^32
	var out bytes.Buffer
	if len(b) >= 4 {
		if hint := binary.LittleEndian.Uint32(b[len(b)-4:]); hint <= maxSizeHint {
			out.Grow(int(hint))
		}
	}

	if _, err := io.Copy(&out, zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// IsValid loads and parses the entry. An entry that exists but can not be
// loaded or parsed is deleted.
func IsValid(pth string) bool {
	obj, ok := Load(pth)
	if ok {
		_, err := object.Parse(obj)
		if err == nil {
			return true
		}
		logger.Logf(logger.Allow, "objcache", "%s: %v", pth, err)
	}

	for _, p := range []string{pth + Extension, pth} {
		if err := os.Remove(p); err == nil {
			logger.Logf(logger.Allow, "objcache", "removed corrupt entry %s", p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Logf(logger.Allow, "objcache", "%v", err)
		}
	}
	return false
}

// Entry describes a file in the cache directory.
type Entry struct {
	Module     string
	Path       string
	Size       int64
	Compressed bool
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%d bytes)", e.Module, e.Size)
}

// Entries lists the entries in a cache directory. Temporary files left by an
// interrupted write are ignored.
func Entries(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("objcache: %w", err)
	}

	var ents []Entry
	for _, de := range des {
		if de.IsDir() || strings.HasSuffix(de.Name(), ".tmp") {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue
		}
		e := Entry{
			Module: de.Name(),
			Path:   filepath.Join(dir, de.Name()),
			Size:   fi.Size(),
		}
		if m, ok := strings.CutSuffix(de.Name(), Extension); ok {
			e.Module = m
			e.Compressed = true
		}
		ents = append(ents, e)
	}

	return ents, nil
}
