package panel

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoDigitString(t *testing.T) {
	assert.Equal(t, "12", TwoDigitString("123"))
	assert.Equal(t, "45", TwoDigitString("a4-5b6"))
	assert.Equal(t, "7", TwoDigitString("7"))
	assert.Equal(t, "", TwoDigitString("xy"))
	assert.Equal(t, "", TwoDigitString(""))
}

func TestDurationFromMMSS(t *testing.T) {
	assert.Equal(t, 90*time.Second, DurationFromMMSS(1, 30))
	assert.Equal(t, 99*time.Minute+99*time.Second, DurationFromMMSS(120, 150))
	assert.Equal(t, time.Duration(0), DurationFromMMSS(-1, -5))
	assert.Equal(t, 6039*time.Second, MaxDuration)
}

func TestDigitsToDuration(t *testing.T) {
	d, err := DigitsToDuration("0130")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = DigitsToDuration("9999")
	require.NoError(t, err)
	assert.Equal(t, MaxDuration, d)

	for _, bad := range []string{"", "130", "01300", "01a0", "-130"} {
		_, err := DigitsToDuration(bad)
		assert.True(t, errors.Is(err, ErrInvalidDigits), bad)
	}
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		duration, elapsed time.Duration
		inputSeconds      int
		want              string
	}{
		{0, 0, 0, "0000"},
		{90 * time.Second, 0, 30, "0130"},
		{90 * time.Second, 10 * time.Second, 30, "0120"},
		{90 * time.Second, 40 * time.Second, 30, "0050"},
		{90 * time.Second, 90 * time.Second, 30, "0000"},
		{MaxDuration, 0, 99, "9999"},
		{MaxDuration, time.Second, 99, "9998"},
		{MaxDuration, 40 * time.Second, 99, "9959"},
		{99 * time.Second, 39 * time.Second, 99, "0060"},
		{99 * time.Second, 40 * time.Second, 99, "0059"},
		{30 * time.Second, time.Minute, 0, "0000"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Display(c.duration, c.elapsed, c.inputSeconds),
			"duration=%v elapsed=%v input=%d", c.duration, c.elapsed, c.inputSeconds)
	}
}
