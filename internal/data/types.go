package data

import (
	"math"
	"strings"
	"time"
)

// Sort keys on the GS1 index are compared lexically, so every timestamp is
// written in UTC with a fixed number of fractional digits.
const SORT_KEY_FORMAT = "2006-01-02T15:04:05.000000000Z"

const DEFAULT_HISTORY_LIMIT = 100

// UNLIMITED asks for every finalized list in the window.
const UNLIMITED = math.MaxInt32

func SortKeyTime(t time.Time) string {
	return t.UTC().Format(SORT_KEY_FORMAT)
}

// NormalizeName is the comparison key for product names: duplicates within a
// list and analytics groups are both decided on it.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeEmail is the owner key for users and lists.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type FinalizedQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

func (q *FinalizedQuery) GetLimit() int {
	if q.Limit <= 0 {
		return DEFAULT_HISTORY_LIMIT
	}
	return min(q.Limit, UNLIMITED)
}
