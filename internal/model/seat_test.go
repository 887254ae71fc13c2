package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
)

func TestParseSeatCode(t *testing.T) {
	s, err := ParseSeatCode("12")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Row)
	assert.Equal(t, 2, s.Number)
	assert.Equal(t, "12", s.Code())

	s, err = ParseSeatCode(" 31 ")
	require.NoError(t, err)
	assert.Equal(t, Seat{Row: 3, Number: 1}, *s)
}

func TestParseSeatCode_invalid(t *testing.T) {
	_, err := ParseSeatCode("")
	assert.True(t, apperr.Is(err, apperr.NullReference))

	for _, code := range []string{"1", "123", "a1", "1-", "99x"} {
		_, err := ParseSeatCode(code)
		assert.Truef(t, apperr.Is(err, apperr.OutOfRange), "code %q", code)
	}
}

func TestSeatCode_roundTripsWholeAddressableHall(t *testing.T) {
	seen := map[string]bool{}
	for r := 1; r <= MaxSeatIndex; r++ {
		for n := 1; n <= MaxSeatIndex; n++ {
			code := Seat{Row: r, Number: n}.Code()
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true

			s, err := ParseSeatCode(code)
			require.NoError(t, err)
			assert.Equal(t, Seat{Row: r, Number: n}, *s)
		}
	}
}
