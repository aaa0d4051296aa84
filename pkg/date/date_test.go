package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-15", New(2024, 1, 15), false},
		{"2024-1-5", New(2024, 1, 5), false},
		{" 2024-03-01 ", New(2024, 3, 1), false},
		{"2024-03-01T10:00:00Z", New(2024, 3, 1), false},
		{"15/01/2024", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 10, DaysBetween(New(2024, 1, 1), New(2024, 1, 11)))
	assert.Equal(t, 0, DaysBetween(New(2024, 1, 1), New(2024, 1, 1)))
	assert.Equal(t, 1, DaysBetween(New(2024, 1, 1), New(2024, 1, 1).Add(time.Hour)))
	assert.Equal(t, 29, DaysBetween(New(2024, 2, 1), New(2024, 3, 1)))
}

func TestFormatAndValid(t *testing.T) {
	assert.Equal(t, "", Format(time.Time{}))
	assert.Equal(t, "2024-02-29", Format(New(2024, 2, 29)))
	assert.True(t, Valid(2024, 2, 29))
	assert.False(t, Valid(2023, 2, 29))
	assert.False(t, Valid(2024, 13, 1))
	assert.True(t, New(2024, 5, 6).Equal(Of(time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC))))
}
