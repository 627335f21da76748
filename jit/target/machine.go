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

// Package target describes the machine the JIT compiler generates code for:
// the CPU name, the CPU features and the target triple.
//
// The CPU name is taken from the native table of known CPUs. When the host
// CPU is not known natively a fallback table is consulted. The fallback table
// is data (TOML) and can be replaced without rebuilding. The policy when
// using the fallback table is to prefer an older CPU name over one that might
// imply an instruction the host does not have.
package target

import (
	"fmt"
	"runtime"
	"strings"
)

// CodeModel of the generated code.
type CodeModel int

// List of code models.
const (
	// data and code are within 2GB of each other
	Small CodeModel = iota

	// no assumption about the distance between code and data
	Large
)

func (m CodeModel) String() string {
	if m == Large {
		return "large"
	}
	return "small"
}

// Machine is the complete target description.
type Machine struct {
	CPU       string
	Triple    string
	Features  []string
	CodeModel CodeModel

	// how the CPU name was chosen
	Source string
}

func (m Machine) String() string {
	return fmt.Sprintf("%s (%s, %s, %s model)", m.CPU, m.Triple, m.Source, m.CodeModel)
}

// Options for Detect().
type Options struct {
	// CPU overrides detection when not empty
	CPU string

	// fallback table. nil means the embedded table
	Fallback *FallbackTable

	CodeModel CodeModel
}

// Detect the target machine for the running host.
func Detect(opts Options) Machine {
	return DetectFor(HostInfo(), runtime.GOOS, runtime.GOARCH, opts)
}

// DetectFor returns the target machine for the described host.
func DetectFor(h Host, goos string, goarch string, opts Options) Machine {
	m := Machine{
		Triple:    Triple(goos, goarch),
		Features:  h.FeatureList(),
		CodeModel: opts.CodeModel,
	}

	switch {
	case opts.CPU != "":
		m.CPU = opts.CPU
		m.Source = "override"
	default:
		m.CPU = HostCPUName(h)
		m.Source = "native"
		if m.CPU == Generic {
			tab := opts.Fallback
			if tab == nil {
				tab = EmbeddedFallbackTable()
			}
			m.CPU = tab.Choose(h)
			m.Source = "fallback"
		}
	}

	return m
}

// Triple returns the target triple for the operating system and architecture.
// The triple mirrors the host except for linux on arm64, where the android
// environment is used so that the X18 register is reserved.
func Triple(goos string, goarch string) string {
	var arch string
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	default:
		arch = goarch
	}

	var sys string
	switch goos {
	case "linux":
		if goarch == "arm64" {
			sys = "unknown-linux-android"
		} else {
			sys = "unknown-linux-gnu"
		}
	case "darwin":
		sys = "apple-darwin"
	case "windows":
		sys = "pc-windows-msvc"
	default:
		sys = "unknown-" + strings.ToLower(goos)
	}

	return arch + "-" + sys
}
