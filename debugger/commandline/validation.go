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

package commandline

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateTokens checks whether input is correct according to the command
// definitions. The tokens are reset before returning.
func (cmds Commands) ValidateTokens(tokens *Tokens) error {
	defer tokens.Reset()

	cmd, ok := tokens.Peek()
	if !ok {
		return nil
	}
	cmd = strings.ToUpper(cmd)

	for n := range cmds {
		if cmd == cmds[n].tag {
			err := cmds[n].validate(tokens)
			if err != nil {
				return fmt.Errorf("%w for %s", err, cmd)
			}

			if tokens.Remaining() > 0 {
				return fmt.Errorf("too many arguments for %s", cmd)
			}

			return nil
		}
	}

	return fmt.Errorf("unrecognised command (%s)", cmd)
}

// branches creates a readable string, listing all the branches of the node.
func branches(n *node) string {
	s := strings.Builder{}
	s.WriteString(n.tag)
	for bi := range n.branch {
		s.WriteString(", ")
		s.WriteString(n.branch[bi].tag)
	}
	return s.String()
}

func (n *node) validate(tokens *Tokens) error {
	// if there is no more input then return true (validation has passed) if
	// the node is optional, false if it is required
	pos := tokens.curr
	tok, ok := tokens.Get()
	if !ok {
		// we treat arguments in the root-group as though they are required,
		// with the exception of the %* placeholder
		if n.group == groupRequired || (n.group == groupRoot && n.tag != "%*") {
			// replace placeholder arguments with something a little less cryptic
			switch n.tag {
			case "%S":
				return fmt.Errorf("missing string argument")
			case "%V":
				return fmt.Errorf("missing numeric argument")
			case "%I":
				return fmt.Errorf("missing floating-point argument")
			case "%F":
				return fmt.Errorf("missing filename argument")
			}
			return fmt.Errorf("missing a required argument (%s)", branches(n))
		}

		return nil
	}

	// check to see if input matches this node. using placeholder matching if
	// appropriate
	match := true

	// default error in case nothing matches - replaced as necessary
	err := fmt.Errorf("unrecognised argument (%s)", tok)

	switch n.tag {
	case "%V":
		_, e := strconv.ParseUint(tok, 0, 64)
		if e != nil {
			err = fmt.Errorf("numeric argument required (%s is not numeric)", tok)
			match = false
		}

	case "%I":
		_, e := strconv.ParseFloat(tok, 64)
		if e != nil {
			err = fmt.Errorf("float argument required (%s is not numeric)", tok)
			match = false
		}

	case "%S", "%F":
		// accept anything. filename is distinct from %S for tab-completion

	case "%*":
		// consume the rest of the tokens without a care
		tokens.End()
		return nil

	default:
		// keywords are not case sensitive
		match = strings.ToUpper(tok) == n.tag
	}

	// if input doesn't match this node, check branches
	if !match {
		for _, b := range n.branch {
			// recursing into the validate function means we need to use the
			// same token as above. a failed branch may have consumed more
			// than one token
			tokens.curr = pos
			if b.validate(tokens) == nil {
				return nil
			}
		}

		// if nothing matches and this is an optional group then claim that
		// we have matched and leave the token for the nodes that follow
		if n.group == groupOptional {
			tokens.curr = pos
			return nil
		}

		tokens.curr = pos + 1
		return err
	}

	// input does match this node. check nodes that follow on
	for ni := range n.next {
		err := n.next[ni].validate(tokens)
		if err != nil {
			return err
		}
	}

	return nil
}
