// Package retry wraps fallible I/O in a bounded retry loop.
package retry

import (
	"fmt"

	db "faassim/debug"
)

// Do runs f up to 1+retries times, returning nil on the first
// success. Each failure is logged; the last error is wrapped into
// the give-up error.
func Do(retries int, what string, f func(attempt int) error) error {
	var r error
	for i := 0; i <= retries; i++ {
		if err := f(i); err == nil {
			return nil
		} else {
			db.DPrintf(db.BATCH_ERR, "%v attempt %d err %v", what, i, err)
			r = err
		}
	}
	return fmt.Errorf("%v: giving up after %d retries: %w", what, retries, r)
}
