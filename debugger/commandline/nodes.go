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
	"strings"
)

// Commands is the root of the command tree. the top-level of the Commands tree
// is an array of nodes. each of these nodes is the start of a command.
type Commands []*node

// Len implements Sort package interface.
func (cmds Commands) Len() int {
	return len(cmds)
}

// Less implements Sort package interface.
func (cmds Commands) Less(i int, j int) bool {
	return cmds[i].tag < cmds[j].tag
}

// Swap implements Sort package interface.
func (cmds Commands) Swap(i int, j int) {
	cmds[i], cmds[j] = cmds[j], cmds[i]
}

func (cmds Commands) String() string {
	s := strings.Builder{}
	for c := range cmds {
		s.WriteString(cmds[c].String())
		s.WriteString("\n")
	}
	return strings.TrimRight(s.String(), "\n")
}

// Names returns the name of every command.
func (cmds Commands) Names() []string {
	n := make([]string, 0, len(cmds))
	for _, c := range cmds {
		n = append(n, c.tag)
	}
	return n
}

type groupType int

const (
	groupUndefined groupType = iota
	groupRoot
	groupRequired
	groupOptional
)

// nodes are chained together through the next and branch arrays.
type node struct {
	// tag should always be non-empty
	tag string

	// group will have the following values:
	//  groupRoot: nodes that are not in an explicit grouping
	//  groupRequired
	//  groupOptional
	group groupType

	next   []*node
	branch []*node
}

func (n node) String() string {
	s := strings.Builder{}

	s.WriteString(n.tag)

	for _, nx := range n.next {
		switch nx.group {
		case groupRequired:
			s.WriteString(fmt.Sprintf(" [%s]", nx))
		case groupOptional:
			s.WriteString(fmt.Sprintf(" (%s)", nx))
		default:
			s.WriteString(fmt.Sprintf(" %s", nx))
		}
	}

	for _, b := range n.branch {
		s.WriteString(fmt.Sprintf("|%s", b))
	}

	return s.String()
}

// isPlaceholder returns true if the tag is one of the argument placeholders.
func isPlaceholder(tag string) bool {
	switch tag {
	case "%V", "%S", "%F", "%I", "%*":
		return true
	}
	return false
}

// keywords adds every keyword in the subtree to the list.
func (n *node) keywords(kw []string) []string {
	if !isPlaceholder(n.tag) {
		kw = append(kw, n.tag)
	}
	for _, nx := range n.next {
		kw = nx.keywords(kw)
	}
	for _, b := range n.branch {
		kw = b.keywords(kw)
	}
	return kw
}
