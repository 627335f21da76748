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

// Package config contains the preferences of the JIT compiler.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cellforge/cellforge/jit/memmgr"
	"github.com/cellforge/cellforge/jit/objcache"
	"github.com/cellforge/cellforge/prefs"
	"github.com/cellforge/cellforge/resources"
)

// Preferences of the JIT compiler.
type Preferences struct {
	dsk *prefs.Disk

	// directory of the object cache
	CacheDir prefs.String

	// fraction of free space on the cache volume the cache may use
	BudgetFraction prefs.Float

	// size of each memory manager block in MiB
	BlockSize prefs.Int

	// use the large code model
	LargeCodeModel prefs.Bool

	// cpu name override. empty string means detect
	CPU prefs.String

	// replacement fallback cpu table. empty string means use embedded table
	FallbackTable prefs.String

	// auxiliary compilers register listeners
	Observe prefs.Bool
}

func (p *Preferences) String() string {
	return p.dsk.String()
}

const defaultCacheDir = "jitcache"

// NewPreferences is the preferred method of initialisation for the
// Preferences type. Values are loaded from the preferences file in the
// resource directory.
func NewPreferences() (*Preferences, error) {
	pth, err := resources.JoinPath(prefs.DefaultPrefsFile)
	if err != nil {
		return nil, err
	}
	return NewPreferencesFromFile(pth)
}

// NewPreferencesFromFile is like NewPreferences but uses the specified
// preferences file.
func NewPreferencesFromFile(pth string) (*Preferences, error) {
	p := &Preferences{}

	p.BudgetFraction.SetHookPre(func(v prefs.Value) error {
		if f, ok := v.(float64); ok && (f <= 0 || f > 1) {
			return fmt.Errorf("config: budget fraction must be in the range (0,1]")
		}
		return nil
	})
	p.BlockSize.SetHookPre(func(v prefs.Value) error {
		if i, ok := v.(int); ok && i <= 0 {
			return fmt.Errorf("config: block size must be positive")
		}
		return nil
	})

	if err := p.SetDefaults(); err != nil {
		return nil, err
	}

	var err error
	p.dsk, err = prefs.NewDisk(pth)
	if err != nil {
		return nil, err
	}

	err = p.dsk.Add("jit.cache.dir", &p.CacheDir)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("jit.cache.budgetFraction", &p.BudgetFraction)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("jit.memory.blockSize", &p.BlockSize)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("jit.codeModel.large", &p.LargeCodeModel)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("jit.cpu", &p.CPU)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("jit.cpu.fallbackTable", &p.FallbackTable)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("jit.observe", &p.Observe)
	if err != nil {
		return nil, err
	}

	if err := p.dsk.Load(); err != nil {
		return nil, err
	}

	return p, nil
}

// SetDefaults reverts all preferences to their default values.
func (p *Preferences) SetDefaults() error {
	for _, err := range []error{
		p.CacheDir.Set(defaultCacheDir),
		p.BudgetFraction.Set(objcache.DefaultBudgetFraction),
		p.BlockSize.Set(memmgr.DefaultBlockSize >> 20),
		p.LargeCodeModel.Set(false),
		p.CPU.Set(""),
		p.FallbackTable.Set(""),
		p.Observe.Set(false),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// CachePath returns the prefix used for object cache entries. A relative
// cache directory is resolved in the resource directory. The directory is
// created if necessary.
func (p *Preferences) CachePath() (string, error) {
	dir := p.CacheDir.String()
	if !filepath.IsAbs(dir) {
		var err error
		dir, err = resources.JoinPath(dir)
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Clean(dir) + string(filepath.Separator), nil
}

// Load preferences from disk.
func (p *Preferences) Load() error {
	return p.dsk.Load()
}

// Save current preferences to disk.
func (p *Preferences) Save() error {
	return p.dsk.Save()
}
