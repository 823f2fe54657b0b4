// Package ledger keeps a student's answers during an active attempt.
package ledger

// Ledger maps question ids to the raw answer the student gave.
// Values are a string, a []string or a bool; the ledger never inspects them.
// It is not safe for concurrent use; the owning session serialises access.
type Ledger struct {
	answers map[string]any
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{answers: make(map[string]any)}
}

// FromMap seeds a ledger with a copy of answers.
func FromMap(answers map[string]any) *Ledger {
	l := New()
	for id, v := range answers {
		l.answers[id] = v
	}
	return l
}

// Set overwrites or inserts the answer for questionID.
func (l *Ledger) Set(questionID string, value any) {
	l.answers[questionID] = value
}

// Get returns the answer for questionID and whether the question was touched.
func (l *Ledger) Get(questionID string) (any, bool) {
	v, ok := l.answers[questionID]
	return v, ok
}

// Has reports whether questionID has an entry.
func (l *Ledger) Has(questionID string) bool {
	_, ok := l.answers[questionID]
	return ok
}

// Len is the number of touched questions.
func (l *Ledger) Len() int {
	return len(l.answers)
}

// UnansweredCount counts the ids that have no entry.
func (l *Ledger) UnansweredCount(questionIDs []string) int {
	n := 0
	for _, id := range questionIDs {
		if !l.Has(id) {
			n++
		}
	}
	return n
}

// Values returns a copy of the underlying map.
func (l *Ledger) Values() map[string]any {
	out := make(map[string]any, len(l.answers))
	for id, v := range l.answers {
		out[id] = v
	}
	return out
}
