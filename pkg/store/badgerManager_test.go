package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timshannon/badgerhold/v4"
)

type record struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

func TestBadgerStore(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(name, &record{ID: name, Name: name, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	var got record
	require.NoError(t, s.Get("b", &got))
	assert.Equal(t, "b", got.Name)
	assert.ErrorIs(t, s.Get("missing", &got), ErrNotFound)

	var list []record
	require.NoError(t, s.Find(&list, (&badgerhold.Query{}).SortBy("CreatedAt").Reverse().Limit(2)))
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Name)

	require.NoError(t, s.DeleteMatching(&record{}, badgerhold.Where("CreatedAt").Lt(base.Add(time.Hour))))
	assert.ErrorIs(t, s.Get("a", &got), ErrNotFound)
}
