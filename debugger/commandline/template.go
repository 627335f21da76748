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
	"sort"
	"strings"
	"unicode"
)

// ParseCommandTemplate turns a list of templates into a Commands tree. The
// commands are sorted by name.
func ParseCommandTemplate(template []string) (*Commands, error) {
	cmds := make(Commands, 0, len(template))

	for _, t := range template {
		p := &templateParser{items: splitTemplate(t)}
		n, err := p.command()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		for _, c := range cmds {
			if c.tag == n.tag {
				return nil, fmt.Errorf("%s: duplicate command", t)
			}
		}
		cmds = append(cmds, n)
	}

	sort.Stable(cmds)

	return &cmds, nil
}

// splitTemplate divides a template into words and the grouping characters.
func splitTemplate(t string) []string {
	var items []string
	var w strings.Builder

	flush := func() {
		if w.Len() > 0 {
			items = append(items, w.String())
			w.Reset()
		}
	}

	for _, r := range t {
		switch {
		case unicode.IsSpace(r):
			flush()
		case strings.ContainsRune("[]()|", r):
			flush()
			items = append(items, string(r))
		default:
			w.WriteRune(r)
		}
	}
	flush()

	return items
}

type templateParser struct {
	items []string
	curr  int
}

func (p *templateParser) peek() (string, bool) {
	if p.curr >= len(p.items) {
		return "", false
	}
	return p.items[p.curr], true
}

func (p *templateParser) get() (string, bool) {
	s, ok := p.peek()
	if ok {
		p.curr++
	}
	return s, ok
}

func (p *templateParser) command() (*node, error) {
	tag, ok := p.get()
	if !ok {
		return nil, fmt.Errorf("empty template")
	}
	if strings.ContainsAny(tag, "[]()|%") {
		return nil, fmt.Errorf("template must begin with a command name")
	}

	n := &node{tag: strings.ToUpper(tag), group: groupRoot}

	next, closer, err := p.sequence()
	if err != nil {
		return nil, err
	}
	if closer != "" {
		return nil, fmt.Errorf("unexpected %s", closer)
	}
	n.next = next

	return n, nil
}

// sequence parses elements until the end of the template, a closing bracket
// or an alternative separator. returns the item that ended the sequence, or
// the empty string if the template ended.
func (p *templateParser) sequence() ([]*node, string, error) {
	var seq []*node

	for {
		it, ok := p.get()
		if !ok {
			return seq, "", nil
		}

		switch it {
		case "]", ")", "|":
			return seq, it, nil
		case "[":
			n, err := p.group(groupRequired, "]")
			if err != nil {
				return nil, "", err
			}
			seq = append(seq, n)
		case "(":
			n, err := p.group(groupOptional, ")")
			if err != nil {
				return nil, "", err
			}
			seq = append(seq, n)
		default:
			n, err := word(it)
			if err != nil {
				return nil, "", err
			}
			seq = append(seq, n)
		}
	}
}

// group parses the alternatives of a group. the first node of each
// alternative takes the group type and the remaining nodes of the alternative
// follow on from it.
func (p *templateParser) group(group groupType, closer string) (*node, error) {
	var head *node

	for {
		seq, end, err := p.sequence()
		if err != nil {
			return nil, err
		}
		if len(seq) == 0 {
			return nil, fmt.Errorf("empty group")
		}
		if seq[0].group != groupRoot {
			return nil, fmt.Errorf("group must begin with a keyword or placeholder")
		}

		alt := seq[0]
		alt.group = group
		alt.next = seq[1:]

		if head == nil {
			head = alt
		} else {
			head.branch = append(head.branch, alt)
		}

		switch end {
		case "|":
			continue
		case closer:
			return head, nil
		case "":
			return nil, fmt.Errorf("missing %s", closer)
		default:
			return nil, fmt.Errorf("mismatched %s", end)
		}
	}
}

func word(it string) (*node, error) {
	if strings.Contains(it, "%") {
		if !isPlaceholder(it) {
			return nil, fmt.Errorf("unknown placeholder (%s)", it)
		}
		return &node{tag: it, group: groupRoot}, nil
	}
	return &node{tag: strings.ToUpper(it), group: groupRoot}, nil
}
