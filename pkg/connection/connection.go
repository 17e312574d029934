package connection

import "time"

// Observer is notified once per HTTP round trip made by a Connection.
// Implementations must be safe for concurrent use.
type Observer interface {
	// ObserveCall receives the endpoint path, the model method ("authenticate"
	// for logins, empty when unknown), the call error if any and its duration.
	ObserveCall(path, method string, err error, elapsed time.Duration)
}
