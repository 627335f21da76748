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

package target

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed fallback.toml
var embeddedFallback []byte

// FallbackVersion is the version of the fallback table format.
const FallbackVersion = 1

// Generation of CPU for a vendor. Requires is the complete list of features
// implied by the generation.
type Generation struct {
	Vendor   string   `toml:"vendor"`
	Name     string   `toml:"name"`
	Requires []string `toml:"requires"`
}

// Rule maps a range of models to a CPU name.
type Rule struct {
	Vendor   string `toml:"vendor"`
	Family   int    `toml:"family"`
	ModelMin int    `toml:"model_min"`
	ModelMax int    `toml:"model_max"`
	CPU      string `toml:"cpu"`
}

// FallbackTable is the data used to choose a CPU name when the native table
// does not know the host CPU.
type FallbackTable struct {
	Version     int          `toml:"version"`
	Generations []Generation `toml:"generation"`
	Rules       []Rule       `toml:"rule"`
}

// ParseFallbackTable decodes and checks a TOML fallback table.
func ParseFallbackTable(data []byte) (*FallbackTable, error) {
	var tab FallbackTable
	if err := toml.Unmarshal(data, &tab); err != nil {
		return nil, fmt.Errorf("target: fallback table: %w", err)
	}
	if tab.Version != FallbackVersion {
		return nil, fmt.Errorf("target: fallback table: unsupported version (%d)", tab.Version)
	}

	gens := make(map[string]bool)
	for _, g := range tab.Generations {
		gens[g.Vendor+"/"+g.Name] = true
	}
	for _, r := range tab.Rules {
		if r.ModelMin > r.ModelMax {
			return nil, fmt.Errorf("target: fallback table: rule for %s has empty model range", r.CPU)
		}
		if !gens[r.Vendor+"/"+r.CPU] {
			return nil, fmt.Errorf("target: fallback table: rule names unknown generation (%s %s)", r.Vendor, r.CPU)
		}
	}

	return &tab, nil
}

// EmbeddedFallbackTable returns the table built into the binary.
func EmbeddedFallbackTable() *FallbackTable {
	tab, err := ParseFallbackTable(embeddedFallback)
	if err != nil {
		panic(err)
	}
	return tab
}

// LoadFallbackTable reads a fallback table from a file. An empty path returns
// the embedded table.
func LoadFallbackTable(pth string) (*FallbackTable, error) {
	if pth == "" {
		return EmbeddedFallbackTable(), nil
	}
	data, err := os.ReadFile(pth)
	if err != nil {
		return nil, fmt.Errorf("target: fallback table: %w", err)
	}
	return ParseFallbackTable(data)
}

func (tab *FallbackTable) generations(vendor string) []Generation {
	var g []Generation
	for _, gen := range tab.Generations {
		if gen.Vendor == vendor {
			g = append(g, gen)
		}
	}
	return g
}

// supported returns true if the host has every feature implied by the
// generation at idx.
func supported(h Host, gens []Generation, idx int) bool {
	return h.Has(gens[idx].Requires...)
}

// Choose a CPU name for the host using the heuristic rules followed by
// feature adjustment. The choice never names a generation that requires a
// feature the host does not have.
func (tab *FallbackTable) Choose(h Host) string {
	gens := tab.generations(h.Vendor)
	if len(gens) == 0 {
		return Generic
	}

	idx := -1
	for _, r := range tab.Rules {
		if r.Vendor == h.Vendor && r.Family == h.Family && h.Model >= r.ModelMin && h.Model <= r.ModelMax {
			for i, g := range gens {
				if g.Name == r.CPU {
					idx = i
					break
				}
			}
			break
		}
	}

	// downgrade while the candidate implies a missing feature
	for idx >= 0 && !supported(h, gens, idx) {
		idx--
	}

	// upgrade while the features of the next generation are all present
	for idx+1 < len(gens) && supported(h, gens, idx+1) {
		idx++
	}

	if idx < 0 {
		return Generic
	}
	return gens[idx].Name
}
