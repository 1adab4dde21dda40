// Package seq guards list views against stale responses: every request
// gets a token from a Tracker and only the response carrying the newest
// token may update the view.
package seq

import (
	"strconv"
	"sync/atomic"
)

type Tracker struct {
	latest atomic.Uint64
}

// Next issues a token greater than every token issued before.
func (t *Tracker) Next() uint64 {
	return t.latest.Add(1)
}

// Accept reports whether a response tagged with token may be applied.
// Older tokens are rejected once a newer request has been issued.
func (t *Tracker) Accept(token uint64) bool {
	return token != 0 && token == t.latest.Load()
}

// Parse reads a token echoed over the wire; anything malformed is 0,
// which is never accepted.
func Parse(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
