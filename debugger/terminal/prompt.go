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

package terminal

import (
	"fmt"
	"strings"

	"github.com/cellforge/cellforge/debugger/govern"
)

// Prompt specifies the prompt text and the prompt style.
type Prompt struct {
	State govern.State
	PC    uint32

	// symbol at the PC. can be empty
	Label string
}

// String returns the prompt with "standard" decoration. Good for terminals
// with no graphical capabilities at all.
func (p Prompt) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("[ %#08x", p.PC))
	if p.Label != "" {
		s.WriteString(fmt.Sprintf(" %s", p.Label))
	}
	s.WriteString(" ]")

	switch p.State {
	case govern.Running:
		s.WriteString(" (running)")
	case govern.Stepping:
		s.WriteString(" (stepping)")
	}

	s.WriteString(" >> ")
	return s.String()
}
