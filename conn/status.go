package conn

// State is the connection lifecycle state.
type State uint8

// Connection states.
const (
	Connecting State = iota
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Status texts shown to the operator.
const (
	TextConnecting   = "Connecting…"
	TextConnected    = "Connected"
	TextDisconnected = "Disconnected. Retrying…"
	TextError        = "Error"
)

// Status is a display-only snapshot of connection health.
type Status struct {
	State   State
	Text    string
	Healthy bool
}

func statusFor(s State) Status {
	switch s {
	case Connected:
		return Status{State: s, Text: TextConnected, Healthy: true}
	case Disconnected:
		return Status{State: s, Text: TextDisconnected}
	}
	return Status{State: Connecting, Text: TextConnecting}
}

func errorStatus() Status {
	return Status{State: Disconnected, Text: TextError}
}
