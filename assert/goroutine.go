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

package assert

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
)

// GetGoRoutineID returns the ID of the current goroutine. It is slow and
// should be used only for development assertions.
func GetGoRoutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

// Owner records which goroutine owns a resource. The zero value has no owner
// and Check() always succeeds until Claim() has been called.
type Owner struct {
	id atomic.Uint64
}

// Claim makes the current goroutine the owner.
func (o *Owner) Claim() {
	o.id.Store(GetGoRoutineID())
}

// Release forgets the owner.
func (o *Owner) Release() {
	o.id.Store(0)
}

// Check returns an error if the resource has an owner and the current
// goroutine is not it.
func (o *Owner) Check(resource string) error {
	id := o.id.Load()
	if id == 0 {
		return nil
	}
	if cur := GetGoRoutineID(); cur != id {
		return fmt.Errorf("assert: %s owned by goroutine %d but accessed from goroutine %d", resource, id, cur)
	}
	return nil
}
