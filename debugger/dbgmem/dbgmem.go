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
	"errors"
	"fmt"
	"strconv"

	"github.com/cellforge/cellforge/disassembly/symbols"
)

// DbgMem is a front-end to the guest memory. It allows addressing by symbol
// name and uses the AddressInfo type for easier presentation.
type DbgMem struct {
	Target Target
	Sym    *symbols.Symbols

	// applied to an address to find the canonical address of a mirror. a mask
	// of zero is treated as all bits set
	Mask uint32
}

func (dbgmem DbgMem) mapAddress(addr uint32) uint32 {
	if dbgmem.Mask == 0 {
		return addr
	}
	return addr & dbgmem.Mask
}

// GetAddressInfo allows addressing by symbols in addition to numerically.
// Returns nil if the address can not be resolved.
func (dbgmem DbgMem) GetAddressInfo(address any) *AddressInfo {
	ai := &AddressInfo{}

	switch address := address.(type) {
	case uint32:
		ai.Address = address
	case int:
		ai.Address = uint32(address)
	case string:
		var res *symbols.SearchResults
		if dbgmem.Sym != nil {
			res = dbgmem.Sym.Search(address, symbols.SearchAll)
		}
		if res != nil {
			ai.Address = res.Entry.Address
			ai.Symbol = res.Entry.Symbol
		} else {
			// this may be a string representation of a numerical address
			addr, err := strconv.ParseUint(address, 0, 32)
			if err != nil {
				return nil
			}
			ai.Address = uint32(addr)
		}
	default:
		panic(fmt.Sprintf("unsupported address type (%T)", address))
	}

	ai.MappedAddress = dbgmem.mapAddress(ai.Address)

	if ai.Symbol == "" && dbgmem.Sym != nil {
		if res := dbgmem.Sym.ReverseSearch(ai.Address, symbols.SearchAll); res != nil {
			ai.Symbol = res.Entry.Symbol
		} else if res := dbgmem.Sym.ReverseSearch(ai.MappedAddress, symbols.SearchAll); res != nil {
			ai.Symbol = res.Entry.Symbol
		}
	}

	return ai
}

// sentinal errors returns by Peek() and Poke()
var PeekError = errors.New("cannot peek address")
var PokeError = errors.New("cannot poke address")

// Peek returns the contents of the memory address, without triggering any side
// effects. The supplied address can be numeric of symbolic. Size is the
// number of bytes to read and should be between one and eight.
func (dbgmem DbgMem) Peek(address any, size int) (*AddressInfo, error) {
	ai := dbgmem.GetAddressInfo(address)
	if ai == nil {
		return nil, fmt.Errorf("%w: %v", PeekError, address)
	}

	if size < 1 || size > 8 {
		return nil, fmt.Errorf("%w: unsupported size (%d)", PeekError, size)
	}

	if !dbgmem.Target.IsValidAddress(ai.MappedAddress) {
		return nil, fmt.Errorf("%w: %v", PeekError, address)
	}

	var err error
	ai.Data, err = ReadSized(dbgmem.Target, ai.MappedAddress, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", PeekError, address, err)
	}

	ai.Size = size
	ai.Peeked = true

	return ai, nil
}

// Poke writes a value at the specified address. The supplied address be
// numeric or symbolic.
func (dbgmem DbgMem) Poke(address any, data uint8) (*AddressInfo, error) {
	ai := dbgmem.GetAddressInfo(address)
	if ai == nil {
		return nil, fmt.Errorf("%w: %v", PokeError, address)
	}

	if !dbgmem.Target.IsValidAddress(ai.MappedAddress) {
		return nil, fmt.Errorf("%w: %v", PokeError, address)
	}

	if err := dbgmem.Target.Write8(ai.MappedAddress, data); err != nil {
		return nil, fmt.Errorf("%w: %v: %w", PokeError, address, err)
	}

	ai.Data = uint64(data)
	ai.Size = 1
	ai.Peeked = true

	return ai, nil
}
