//go:build !linux

package mainthread

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThread falls back to the goroutine id. Combined with the thread lock
// taken by Designate it identifies the same execution context.
func currentThread() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))

	if i := bytes.IndexByte(buf, ' '); i > 0 {
		buf = buf[:i]
	}

	id, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return -1
	}

	return id
}
