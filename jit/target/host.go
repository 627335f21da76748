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
	"slices"

	"github.com/klauspost/cpuid/v2"
)

// Host describes the CPU of the host machine.
type Host struct {
	Vendor   string
	Brand    string
	Family   int
	Model    int
	Features map[string]bool
}

// HostInfo returns the description of the running machine.
func HostInfo() Host {
	h := Host{
		Vendor:   cpuid.CPU.VendorString,
		Brand:    cpuid.CPU.BrandName,
		Family:   cpuid.CPU.Family,
		Model:    cpuid.CPU.Model,
		Features: make(map[string]bool),
	}
	for _, f := range cpuid.CPU.FeatureSet() {
		h.Features[f] = true
	}
	return h
}

// Has returns true if all the features are present.
func (h Host) Has(features ...string) bool {
	for _, f := range features {
		if !h.Features[f] {
			return false
		}
	}
	return true
}

// FeatureList returns the sorted list of host features.
func (h Host) FeatureList() []string {
	l := make([]string, 0, len(h.Features))
	for f, ok := range h.Features {
		if ok {
			l = append(l, f)
		}
	}
	slices.Sort(l)
	return l
}

type nativeKey struct {
	vendor string
	family int
	model  int
}

// cpus known to the compilation backend by exact family and model.
var native = map[nativeKey]string{
	{"GenuineIntel", 6, 0x1a}:    "nehalem",
	{"GenuineIntel", 6, 0x2a}:    "sandybridge",
	{"GenuineIntel", 6, 0x3a}:    "ivybridge",
	{"GenuineIntel", 6, 0x3c}:    "haswell",
	{"GenuineIntel", 6, 0x3f}:    "haswell",
	{"GenuineIntel", 6, 0x3d}:    "broadwell",
	{"GenuineIntel", 6, 0x4e}:    "skylake",
	{"GenuineIntel", 6, 0x5e}:    "skylake",
	{"GenuineIntel", 6, 0x8e}:    "skylake",
	{"GenuineIntel", 6, 0x9e}:    "skylake",
	{"GenuineIntel", 6, 0x55}:    "skylake-avx512",
	{"GenuineIntel", 6, 0x7e}:    "icelake-client",
	{"GenuineIntel", 6, 0x6a}:    "icelake-server",
	{"AuthenticAMD", 0x16, 0x30}: "btver2",
	{"AuthenticAMD", 0x17, 0x01}: "znver1",
	{"AuthenticAMD", 0x17, 0x08}: "znver1",
	{"AuthenticAMD", 0x17, 0x31}: "znver2",
	{"AuthenticAMD", 0x17, 0x71}: "znver2",
}

// Generic is the CPU name used when nothing better is known.
const Generic = "generic"

// HostCPUName returns the name of the CPU as known natively by the
// compilation backend. Returns Generic for unknown CPUs.
func HostCPUName(h Host) string {
	if n, ok := native[nativeKey{h.Vendor, h.Family, h.Model}]; ok {
		return n
	}
	return Generic
}
