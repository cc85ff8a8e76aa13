// Package sharing defines the outcome codes reported for every outbound
// clipboard send.
package sharing

import "fmt"

// Result is the outcome of a single share attempt. Exactly one value is
// produced per attempt; expected failures are never reported as errors.
type Result int

const (
	Success Result = iota
	SendingError
	PermissionNotGranted
	NoSelectedDevices
	ClipboardEmpty
)

var names = [...]string{
	Success:              "SUCCESS",
	SendingError:         "SENDING_ERROR",
	PermissionNotGranted: "PERMISSION_NOT_GRANTED",
	NoSelectedDevices:    "NO_SELECTED_DEVICES",
	ClipboardEmpty:       "CLIPBOARD_EMPTY",
}

var messages = [...]string{
	Success:              "Clipboard shared!",
	SendingError:         "Sending failed",
	PermissionNotGranted: "Bluetooth permission not granted",
	NoSelectedDevices:    "No devices selected",
	ClipboardEmpty:       "Clipboard is empty",
}

// Valid reports whether r is one of the defined results.
func (r Result) Valid() bool { return r >= Success && r <= ClipboardEmpty }

func (r Result) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Result(%d)", int(r))
	}
	return names[r]
}

// Message returns the human-readable text shown to the user for r.
// Unknown values fall back to the generic sending failure text.
func (r Result) Message() string {
	if !r.Valid() {
		return messages[SendingError]
	}
	return messages[r]
}

// OK reports whether r is Success.
func (r Result) OK() bool { return r == Success }

// severity orders results from best to worst for aggregation. Local
// preconditions rank below transport failures.
func (r Result) severity() int {
	switch r {
	case Success:
		return 0
	case ClipboardEmpty, NoSelectedDevices:
		return 1
	case PermissionNotGranted:
		return 2
	default:
		return 3
	}
}

// Worse returns whichever of a and b is the more severe outcome.
func Worse(a, b Result) Result {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

func (r Result) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("sharing: invalid result %d", int(r))
	}
	return []byte(names[r]), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = p
	return nil
}

// Parse converts a result name such as "SENDING_ERROR" back into a Result.
func Parse(s string) (Result, error) {
	for i, n := range names {
		if n == s {
			return Result(i), nil
		}
	}
	return SendingError, fmt.Errorf("sharing: unknown result %q", s)
}
