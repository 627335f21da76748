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

package target_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cellforge/cellforge/jit/target"
	"github.com/cellforge/cellforge/test"
)

func host(vendor string, family int, model int, features ...string) target.Host {
	h := target.Host{
		Vendor:   vendor,
		Family:   family,
		Model:    model,
		Features: make(map[string]bool),
	}
	for _, f := range features {
		h.Features[f] = true
	}
	return h
}

var haswellFeatures = []string{"SSE3", "SSSE3", "SSE4", "SSE42", "POPCNT", "AVX", "AVX2", "BMI1", "BMI2", "FMA3", "MOVBE"}

func TestNative(t *testing.T) {
	m := target.DetectFor(host("GenuineIntel", 6, 0x3c, haswellFeatures...), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, "haswell")
	test.ExpectEquality(t, m.Source, "native")
	test.ExpectEquality(t, m.Triple, "x86_64-unknown-linux-gnu")
}

func TestOverride(t *testing.T) {
	m := target.DetectFor(host("GenuineIntel", 6, 0x3c), "linux", "amd64", target.Options{CPU: "x86-64", CodeModel: target.Large})
	test.ExpectEquality(t, m.CPU, "x86-64")
	test.ExpectEquality(t, m.Source, "override")
	test.ExpectEquality(t, m.CodeModel, target.Large)
}

func TestFallbackRule(t *testing.T) {
	all := append(append([]string{}, haswellFeatures...), "ADX", "RDSEED", "GFNI", "AVXVNNI", "SERIALIZE")
	m := target.DetectFor(host("GenuineIntel", 6, 0x97, all...), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, "alderlake")
	test.ExpectEquality(t, m.Source, "fallback")
}

func TestFallbackDowngrade(t *testing.T) {
	// an alderlake model number on a part without the alderlake features.
	// the choice is the newest generation that is fully supported
	m := target.DetectFor(host("GenuineIntel", 6, 0x97, haswellFeatures...), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, "haswell")

	// no features at all
	m = target.DetectFor(host("GenuineIntel", 6, 0x97), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, target.Generic)
}

func TestFallbackUpgrade(t *testing.T) {
	zen3 := []string{"SSE3", "SSSE3", "SSE4", "SSE42", "POPCNT", "AVX", "AVX2", "BMI1", "BMI2", "FMA3", "ADX", "SHA",
		"CLZERO", "RDPID", "WBNOINVD", "VAES", "VPCLMULQDQ", "INVPCID"}

	m := target.DetectFor(host("AuthenticAMD", 0x19, 0x21, zen3...), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, "znver3")

	// family 0x19 model in the zen 3 range with the zen 4 features
	zen4 := append(append([]string{}, zen3...), "AVX512F", "AVX512BW", "AVX512VL", "AVX512BF16")
	m = target.DetectFor(host("AuthenticAMD", 0x19, 0x21, zen4...), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, "znver4")
}

func TestUnknownVendor(t *testing.T) {
	m := target.DetectFor(host("HygonGenuine", 0x18, 0x01, "AVX2"), "linux", "amd64", target.Options{})
	test.ExpectEquality(t, m.CPU, target.Generic)
}

func TestTriple(t *testing.T) {
	test.ExpectEquality(t, target.Triple("linux", "arm64"), "aarch64-unknown-linux-android")
	test.ExpectEquality(t, target.Triple("darwin", "arm64"), "aarch64-apple-darwin")
	test.ExpectEquality(t, target.Triple("windows", "amd64"), "x86_64-pc-windows-msvc")
	test.ExpectEquality(t, target.Triple("freebsd", "amd64"), "x86_64-unknown-freebsd")
}

func TestReplacementTable(t *testing.T) {
	pth := filepath.Join(t.TempDir(), "cpus.toml")
	test.DemandSuccess(t, os.WriteFile(pth, []byte(`
version = 1

[[generation]]
vendor = "GenuineIntel"
name = "future"
requires = ["SSE3"]

[[rule]]
vendor = "GenuineIntel"
family = 6
model_min = 0xf0
model_max = 0xff
cpu = "future"
`), 0o600))

	tab, err := target.LoadFallbackTable(pth)
	test.DemandSuccess(t, err)
	m := target.DetectFor(host("GenuineIntel", 6, 0xf1, "SSE3"), "linux", "amd64", target.Options{Fallback: tab})
	test.ExpectEquality(t, m.CPU, "future")

	_, err = target.ParseFallbackTable([]byte("version = 2"))
	test.ExpectFailure(t, err)
	_, err = target.ParseFallbackTable([]byte("version = 1\n[[rule]]\ncpu = \"nothing\""))
	test.ExpectFailure(t, err)

	tab, err = target.LoadFallbackTable("")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(tab.Rules) > 0, true)
}

func TestDetectHost(t *testing.T) {
	m := target.Detect(target.Options{})
	test.ExpectInequality(t, m.CPU, "")
	test.ExpectInequality(t, m.Triple, "")
}
