package reconcile

// DeletePending is the user's delete selection: NotDeleting, AwaitingIndex
// or Delete. The host loop owns it; Tick consumes a resolved Delete.
type DeletePending interface {
	isDeletePending()
}

// NotDeleting means no delete was requested
type NotDeleting struct{}

// AwaitingIndex means the user asked to delete and has not picked a record
type AwaitingIndex struct{}

// Delete requests removal of the record at Index in the displayed state
type Delete struct {
	Index int
}

func (NotDeleting) isDeletePending()   {}
func (AwaitingIndex) isDeletePending() {}
func (Delete) isDeletePending()        {}

// maxLetters is the number of records addressable with a single letter.
const maxLetters = 26

// Letter returns the letter addressing index i ('a' for 0).
func Letter(i int) (rune, bool) {
	if i < 0 || i >= maxLetters {
		return 0, false
	}
	return rune('a' + i), true
}

// IndexOf maps a lowercase letter back to an index.
func IndexOf(r rune) (int, bool) {
	if r < 'a' || r > 'z' {
		return 0, false
	}
	return int(r - 'a'), true
}
