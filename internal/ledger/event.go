package ledger

// Event is the notification emitted by a successful mutating call.
type Event struct {
	Contract string
	Name     string
	Fields   map[string]string
}

// NewEvent builds an event from alternating key/value pairs.
func NewEvent(contract, name string, keyValues ...string) Event {
	fields := make(map[string]string, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		fields[keyValues[i]] = keyValues[i+1]
	}

	return Event{Contract: contract, Name: name, Fields: fields}
}
