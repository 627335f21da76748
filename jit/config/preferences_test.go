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

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cellforge/cellforge/jit/config"
	"github.com/cellforge/cellforge/jit/target"
	"github.com/cellforge/cellforge/prefs"
	"github.com/cellforge/cellforge/test"
)

func TestDefaults(t *testing.T) {
	pth := filepath.Join(t.TempDir(), prefs.DefaultPrefsFile)
	p, err := config.NewPreferencesFromFile(pth)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, p.BlockSize.Get().(int), 256)
	test.ExpectApproximate(t, p.BudgetFraction.Get().(float64), 0.25, 0.0001)
	test.ExpectEquality(t, p.LargeCodeModel.Get().(bool), false)
	test.ExpectEquality(t, p.CPU.String(), "")
	test.ExpectEquality(t, strings.Contains(p.String(), "jit.memory.blockSize :: 256"), true)
}

func TestRangeChecks(t *testing.T) {
	p, err := config.NewPreferencesFromFile(filepath.Join(t.TempDir(), prefs.DefaultPrefsFile))
	test.DemandSuccess(t, err)

	test.ExpectFailure(t, p.BudgetFraction.Set(0.0))
	test.ExpectFailure(t, p.BudgetFraction.Set("1.5"))
	test.ExpectSuccess(t, p.BudgetFraction.Set(1.0))
	test.ExpectFailure(t, p.BlockSize.Set(-1))
}

func TestSaveAndCachePath(t *testing.T) {
	dir := t.TempDir()
	pth := filepath.Join(dir, prefs.DefaultPrefsFile)

	p, err := config.NewPreferencesFromFile(pth)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, p.CacheDir.Set(filepath.Join(dir, "cache")))
	test.ExpectSuccess(t, p.LargeCodeModel.Set(true))
	test.ExpectSuccess(t, p.Save())

	q, err := config.NewPreferencesFromFile(pth)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, q.LargeCodeModel.Get().(bool), true)

	cp, err := q.CachePath()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, cp, filepath.Join(dir, "cache")+string(filepath.Separator))
	fi, err := os.Stat(cp)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, fi.IsDir(), true)
}

func TestOptions(t *testing.T) {
	dir := t.TempDir()
	p, err := config.NewPreferencesFromFile(filepath.Join(dir, prefs.DefaultPrefsFile))
	test.DemandSuccess(t, err)

	test.ExpectSuccess(t, p.CacheDir.Set(filepath.Join(dir, "objects")))
	test.ExpectSuccess(t, p.BlockSize.Set(16))
	test.ExpectSuccess(t, p.LargeCodeModel.Set(true))
	test.ExpectSuccess(t, p.CPU.Set("haswell"))

	opts, err := p.Options()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, opts.BlockSize, uint64(16<<20))
	test.ExpectEquality(t, opts.Target.CPU, "haswell")
	test.ExpectEquality(t, opts.Target.CodeModel, target.Large)
	test.ExpectEquality(t, opts.CacheDir, filepath.Join(dir, "objects")+string(filepath.Separator))
	test.ExpectEquality(t, opts.Target.Fallback == nil, true)

	test.ExpectSuccess(t, p.FallbackTable.Set(filepath.Join(dir, "missing.toml")))
	_, err = p.Options()
	test.ExpectFailure(t, err)
}
