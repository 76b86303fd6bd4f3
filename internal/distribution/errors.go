package distribution

import (
	"errors"
	"fmt"
)

// ErrFault matches every failure of a remote call: transport errors, non-2xx
// responses, undecodable bodies and explicit success=false replies.
var ErrFault = errors.New("distribution service fault")

// Fault describes a failed round trip to the distribution service.
type Fault struct {
	Op         string // can-claim, claim, claim-status
	StatusCode int    // HTTP status, 0 when no response was received
	Message    string // remote message, when the body carried one
	Err        error
}

func (f *Fault) Error() string {
	msg := "distribution " + f.Op
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (%d)", f.StatusCode)
	}
	if f.Message != "" {
		msg += ": " + f.Message
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error { return f.Err }

// Is makes errors.Is(err, ErrFault) true for any *Fault.
func (f *Fault) Is(target error) bool { return target == ErrFault }
