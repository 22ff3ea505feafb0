package mqtt

import "errors"

// ErrNotConnected is returned when an operation requires an established
// broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")
