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

package symbols

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrSymbolFile is returned when a line in a symbol file can not be parsed.
var ErrSymbolFile = errors.New("symbol file")

// ReadSymbolsFile creates a new Symbols instance from the named file.
func ReadSymbolsFile(pth string) (*Symbols, error) {
	f, err := os.Open(pth)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer f.Close()

	sym := NewSymbols()
	if err := sym.Read(f); err != nil {
		return nil, fmt.Errorf("symbols: %s: %w", pth, err)
	}
	return sym, nil
}

// Read symbols from the reader and add them to the existing tables. No symbols
// are added if any line is malformed.
func (sym *Symbols) Read(r io.Reader) error {
	var ents []Entry
	var kinds []Kind

	scanner := bufio.NewScanner(r)
	var n int
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		e, kind, err := parseLine(line)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrSymbolFile, n, err)
		}
		ents = append(ents, e)
		kinds = append(kinds, kind)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	sym.crit.Lock()
	defer sym.crit.Unlock()
	for i, e := range ents {
		sym.table(kinds[i]).add(e, true)
	}

	return nil
}

func parseLine(line string) (Entry, Kind, error) {
	flds := strings.Fields(line)

	var e Entry
	var typ string

	switch len(flds) {
	case 3:
		typ = flds[1]
		e.Symbol = flds[2]
	case 4:
		sz, err := strconv.ParseUint(flds[1], 16, 64)
		if err != nil {
			return e, Label, fmt.Errorf("size: %v", err)
		}
		if sz > 0xffffffff {
			return e, Label, fmt.Errorf("size too large: %s", flds[1])
		}
		e.Size = uint32(sz)
		typ = flds[2]
		e.Symbol = flds[3]
	default:
		return e, Label, fmt.Errorf("unexpected number of fields (%d)", len(flds))
	}

	a, err := strconv.ParseUint(flds[0], 16, 64)
	if err != nil {
		return e, Label, fmt.Errorf("address: %v", err)
	}

	// guest addresses are 32bit. nm pads to 64bit on some hosts
	if a > 0xffffffff {
		return e, Label, fmt.Errorf("address out of range: %s", flds[0])
	}
	e.Address = uint32(a)

	if len(typ) != 1 {
		return e, Label, fmt.Errorf("unrecognised symbol type: %s", typ)
	}

	if e.Size == 0 {
		return e, Label, nil
	}

	switch typ[0] {
	case 'T', 't', 'W', 'w':
		return e, Function, nil
	case 'D', 'd', 'B', 'b', 'R', 'r', 'G', 'g', 'S', 's', 'V', 'v':
		return e, Data, nil
	}
	e.Size = 0
	return e, Label, nil
}
