package inbound

import "fmt"

/* State is a step of the per-call pipeline
 * Follows: Received -> SignatureChecked -> ProfileGated -> Skipped/Stored
 * -> DispatchOk/DispatchFailed -> ResponseEmitted, or SignatureRejected
 */
type State int

const (
	Received State = iota + 1
	SignatureChecked
	SignatureRejected
	ProfileGated
	Skipped
	Stored
	DispatchOk
	DispatchFailed
	ResponseEmitted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case SignatureChecked:
		return "signature_checked"
	case SignatureRejected:
		return "signature_rejected"
	case ProfileGated:
		return "profile_gated"
	case Skipped:
		return "skipped"
	case Stored:
		return "stored"
	case DispatchOk:
		return "dispatch_ok"
	case DispatchFailed:
		return "dispatch_failed"
	case ResponseEmitted:
		return "response_emitted"
	default:
		return "unknown"
	}
}

// Validate checks if the state is valid
func (s State) Validate() error {
	if s < Received || s > ResponseEmitted {
		return fmt.Errorf("invalid state: %d", s)
	}
	return nil
}

// IsFinal returns true if no transition leaves the state
func (s State) IsFinal() bool {
	return s == ResponseEmitted || s == SignatureRejected || s == DispatchFailed
}
