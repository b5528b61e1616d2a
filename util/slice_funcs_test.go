package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAtAndRemove(t *testing.T) {
	s := []int{1, 2, 4}

	s = InsertAt(s, 2, 3)
	require.Equal(t, []int{1, 2, 3, 4}, s)

	s = InsertAt(s, 0, 0)
	require.Equal(t, []int{0, 1, 2, 3, 4}, s)

	s = InsertAt(s, len(s), 5)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, s)

	s = Remove(s, 3)
	require.Equal(t, []int{0, 1, 2, 4, 5}, s)
	require.Equal(t, 3, IndexOf(s, 4))
	require.Equal(t, -1, IndexOf(s, 3))
	require.False(t, Contains(s, 3))
}

func TestMap(t *testing.T) {
	require.Equal(t, []string{"a", "bb"}, Map([]int{1, 2}, func(n int) string {
		out := ""
		for i := 0; i < n; i++ {
			out += string(rune('a' + n - 1))
		}
		return out
	}))
}
