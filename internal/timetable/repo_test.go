package timetable

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A snapshot taken before the scope locks are granted would hide the previous
// holder's insert and fail disjoint concurrent inserts with a serialization error.
func TestScopeTransactionReadsAfterLock(t *testing.T) {
	assert.Equal(t, sql.LevelReadCommitted, scopeTxOptions.Isolation)
	assert.False(t, scopeTxOptions.ReadOnly)
}
