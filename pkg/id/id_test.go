package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 1000; i++ {
		s := New()
		require.True(t, Valid(s))
		require.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
		assert.Greater(t, s, prev)
		prev = s
	}
}

func TestTime(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	got, ok := Time(NewAt(at))
	require.True(t, ok)
	assert.True(t, got.Equal(at))

	_, ok = Time("not-an-id")
	assert.False(t, ok)
	assert.False(t, Valid(""))
}
