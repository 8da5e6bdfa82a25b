package panel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxDuration is the largest duration the four digit display can hold,
// 99 minutes and 99 seconds.
var MaxDuration = DurationFromMMSS(99, 99)

// ErrInvalidDigits is returned for clock or keypad input that is not four
// decimal digits.
var ErrInvalidDigits = errors.New("digits must be four decimal characters MMSS")

// TwoDigitString strips every non-digit from s and keeps the first two
// digits.
func TwoDigitString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == 2 {
			break
		}
	}
	return b.String()
}

// DurationFromMMSS converts a minutes and seconds field pair to a duration.
// Each field is clamped to 0..99.
func DurationFromMMSS(minutes, seconds int) time.Duration {
	return time.Duration(clampField(minutes))*time.Minute + time.Duration(clampField(seconds))*time.Second
}

func clampField(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 99:
		return 99
	default:
		return v
	}
}

// DigitsToDuration parses a four digit MMSS string.
func DigitsToDuration(digits string) (time.Duration, error) {
	minutes, seconds, err := splitDigits(digits)
	if err != nil {
		return 0, err
	}
	return DurationFromMMSS(minutes, seconds), nil
}

func splitDigits(digits string) (int, int, error) {
	if len(digits) != 4 {
		return 0, 0, errors.Wrapf(ErrInvalidDigits, "%q", digits)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, 0, errors.Wrapf(ErrInvalidDigits, "%q", digits)
		}
	}

	minutes, _ := strconv.Atoi(digits[:2])
	seconds, _ := strconv.Atoi(digits[2:])

	return minutes, seconds, nil
}

// Display renders the MMSS digits shown while counting down from duration.
//
// An entry with more than 59 seconds, such as 99:99, keeps its odd seconds
// field and counts it down until it catches up with the normalized clock;
// 99:99 shows 99:98, 99:97 and so on until 99:59. inputSeconds is the seconds
// field as it was entered.
func Display(duration, elapsed time.Duration, inputSeconds int) string {
	current := duration - elapsed
	if current < 0 {
		current = 0
	}

	currentMs := float64(current.Milliseconds())
	deltaSeconds := float64(elapsed.Milliseconds()) / 1000

	seconds := math.Round(math.Mod(currentMs, 60000) / 1000)
	diff := math.Max(0, float64(inputSeconds)-seconds-deltaSeconds)
	minutes := math.Floor(currentMs/60000 - diff/60)

	return fmt.Sprintf("%02d%02d", int(minutes), int(seconds+diff))
}
