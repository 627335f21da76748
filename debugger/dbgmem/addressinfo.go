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

package dbgmem

import (
	"fmt"
	"strings"
)

// AddressInfo is returned by dbgmem functions. This type contains everything
// you could possibly usefully know about an address. Most usefully perhaps,
// the String() function provides a normalised presentation of information.
type AddressInfo struct {
	Address       uint32
	MappedAddress uint32
	Symbol        string

	// the data at the address. if peeked is false then data mays not be valid
	Peeked bool
	Size   int
	Data   uint64
}

func (ai AddressInfo) String() string {
	s := strings.Builder{}

	s.WriteString(fmt.Sprintf("%#08x", ai.Address))

	if ai.Symbol != "" {
		s.WriteString(fmt.Sprintf(" (%s)", ai.Symbol))
	}

	if ai.Address != ai.MappedAddress {
		s.WriteString(fmt.Sprintf(" [mirror of %#08x]", ai.MappedAddress))
	}

	if ai.Peeked {
		s.WriteString(fmt.Sprintf(" -> %#0*x", ai.Size*2+2, ai.Data))
	}

	return s.String()
}
