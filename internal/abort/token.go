// Package abort implements the cooperative cancellation token. The flag is
// polled at stage boundaries and loop heads; a running external tool is
// never interrupted, it finishes before the trip is observed.
package abort

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrAborted is returned (wrapped) once a tripped token is observed.
var ErrAborted = errors.New("workflow aborted by user")

// Token is a settable, polled cancellation flag. The zero value is ready to
// use. A nil *Token never trips.
type Token struct {
	tripped atomic.Bool
}

// Trip requests cancellation. Safe to call from any goroutine, repeatedly.
func (t *Token) Trip() {
	if t != nil {
		t.tripped.Store(true)
	}
}

// Tripped reports whether cancellation has been requested.
func (t *Token) Tripped() bool {
	return t != nil && t.tripped.Load()
}

// Check returns ErrAborted wrapped with the stage name when tripped.
func (t *Token) Check(stage string) error {
	if t.Tripped() {
		return fmt.Errorf("%w during %s", ErrAborted, stage)
	}
	return nil
}
