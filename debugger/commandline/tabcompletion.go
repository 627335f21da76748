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
	"sort"
	"strings"
	"unicode"

	"github.com/chzyer/readline"
)

// TabCompletion completes keywords from a Commands tree. It implements the
// readline.AutoCompleter interface.
type TabCompletion struct {
	cmds *Commands
}

var _ readline.AutoCompleter = (*TabCompletion)(nil)

// NewTabCompletion is the preferred method of initialisation for
// TabCompletion.
func NewTabCompletion(cmds *Commands) *TabCompletion {
	return &TabCompletion{cmds: cmds}
}

// Options returns the keywords that can complete the last word of the input.
// The first word is completed from the list of command names and any other
// word from the keywords of the command.
func (tc *TabCompletion) Options(input string) []string {
	words := strings.Fields(input)

	var partial string
	if len(input) > 0 && !unicode.IsSpace(rune(input[len(input)-1])) && len(words) > 0 {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}
	trigger := strings.ToUpper(partial)

	var candidates []string
	if len(words) == 0 {
		candidates = tc.cmds.Names()
	} else {
		cmd := strings.ToUpper(words[0])
		for _, c := range *tc.cmds {
			if c.tag == cmd {
				for _, nx := range c.next {
					candidates = nx.keywords(candidates)
				}
				break
			}
		}
	}

	var opts []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] || !strings.HasPrefix(c, trigger) {
			continue
		}
		seen[c] = true
		opts = append(opts, c)
	}
	sort.Strings(opts)

	return opts
}

// Do implements the readline.AutoCompleter interface.
func (tc *TabCompletion) Do(line []rune, pos int) ([][]rune, int) {
	input := string(line[:pos])

	var partial string
	if i := strings.LastIndexFunc(input, unicode.IsSpace); i >= 0 {
		partial = input[i+1:]
	} else {
		partial = input
	}

	// match the case of the input
	lower := partial == "" || unicode.IsLower(rune(partial[0]))

	var completions [][]rune
	for _, o := range tc.Options(input) {
		if lower {
			o = strings.ToLower(o)
		}
		completions = append(completions, []rune(o[len(partial):]+" "))
	}

	return completions, len([]rune(partial))
}
