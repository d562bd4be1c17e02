package ledger

// Journal records how to undo every state mutation performed during the
// current operation, together with the events it emitted. Reverting to a
// snapshot restores the state byte for byte and drops the events.
type Journal struct {
	undo   []func()
	events []Event
}

type Snapshot struct {
	undo   int
	events int
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Record(undo func()) {
	j.undo = append(j.undo, undo)
}

func (j *Journal) Emit(event Event) {
	j.events = append(j.events, event)
}

func (j *Journal) Snapshot() Snapshot {
	return Snapshot{undo: len(j.undo), events: len(j.events)}
}

func (j *Journal) RevertTo(snapshot Snapshot) {
	for i := len(j.undo) - 1; i >= snapshot.undo; i-- {
		j.undo[i]()
	}

	j.undo = j.undo[:snapshot.undo]
	j.events = j.events[:snapshot.events]
}

// Commit forgets the undo log and hands back the pending events.
func (j *Journal) Commit() []Event {
	events := j.events
	j.undo = nil
	j.events = nil
	return events
}

// Atomic runs fn as a single all-or-nothing operation. Atomic calls must
// not be nested.
func (j *Journal) Atomic(fn func() error) ([]Event, error) {
	snapshot := j.Snapshot()
	if err := fn(); err != nil {
		j.RevertTo(snapshot)
		return nil, err
	}

	return j.Commit(), nil
}

// Put stores value under key and records how to restore the previous entry.
func Put[K comparable, V any](j *Journal, m map[K]V, key K, value V) {
	previous, existed := m[key]
	m[key] = value
	j.Record(func() {
		if existed {
			m[key] = previous
		} else {
			delete(m, key)
		}
	})
}

func Delete[K comparable, V any](j *Journal, m map[K]V, key K) {
	previous, existed := m[key]
	if !existed {
		return
	}

	delete(m, key)
	j.Record(func() {
		m[key] = previous
	})
}

func Assign[T any](j *Journal, target *T, value T) {
	previous := *target
	*target = value
	j.Record(func() {
		*target = previous
	})
}
