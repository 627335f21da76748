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

package config

import (
	"github.com/cellforge/cellforge/jit"
	"github.com/cellforge/cellforge/jit/target"
)

// Options returns the compiler options described by the preferences. The
// cache directory is created if it does not exist.
func (p *Preferences) Options() (jit.Options, error) {
	opts := jit.Options{
		BlockSize:      uint64(p.BlockSize.Get().(int)) << 20,
		Observe:        p.Observe.Get().(bool),
		BudgetFraction: p.BudgetFraction.Get().(float64),
		Target: target.Options{
			CPU: p.CPU.String(),
		},
	}

	if p.LargeCodeModel.Get().(bool) {
		opts.Target.CodeModel = target.Large
	}

	if pth := p.FallbackTable.String(); pth != "" {
		tbl, err := target.LoadFallbackTable(pth)
		if err != nil {
			return jit.Options{}, err
		}
		opts.Target.Fallback = tbl
	}

	dir, err := p.CachePath()
	if err != nil {
		return jit.Options{}, err
	}
	opts.CacheDir = dir

	return opts, nil
}
