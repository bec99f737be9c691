package gateway

import "fmt"

// ConnState is the lifecycle of one websocket connection.
//
//	Connecting -> Authenticated -> Active -> Closed
//	Connecting -> Closed (handshake refused)
//
// Closed is terminal; a reconnect is a new connection starting at Connecting.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func (s ConnState) CanTransition(to ConnState) bool {
	switch s {
	case StateConnecting:
		return to == StateAuthenticated || to == StateClosed
	case StateAuthenticated:
		return to == StateActive || to == StateClosed
	case StateActive:
		return to == StateClosed
	default:
		return false
	}
}
