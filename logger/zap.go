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

package logger

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ZapEcho forwards echoed log entries to a zap logger. Use it as the writer
// given to SetEcho() when structured output is wanted.
//
// Each line written is one entry. Partial lines are held until the newline
// arrives.
type ZapEcho struct {
	crit sync.Mutex
	log  *zap.Logger
	buf  bytes.Buffer
}

// NewZapEcho is the preferred method of initialisation for the ZapEcho type.
func NewZapEcho(log *zap.Logger) *ZapEcho {
	return &ZapEcho{log: log}
}

func (z *ZapEcho) Write(p []byte) (int, error) {
	z.crit.Lock()
	defer z.crit.Unlock()

	z.buf.Write(p)
	for {
		line, err := z.buf.ReadString('\n')
		if err != nil {
			// put back the incomplete line
			rest := []byte(line)
			z.buf.Reset()
			z.buf.Write(rest)
			break
		}
		z.entry(strings.TrimSuffix(line, "\n"))
	}

	return len(p), nil
}

func (z *ZapEcho) entry(line string) {
	if line == "" {
		return
	}

	var fields []zap.Field

	detail := line
	if tag, d, ok := strings.Cut(line, ": "); ok {
		fields = append(fields, zap.String("tag", tag))
		detail = d
	}

	if d, rep, ok := strings.Cut(detail, " (repeat x"); ok {
		detail = d
		fields = append(fields, zap.String("repeat", strings.TrimSuffix(rep, ")")))
	}

	z.log.Info(detail, fields...)
}

// Sync flushes the zap logger.
func (z *ZapEcho) Sync() error {
	return z.log.Sync()
}
