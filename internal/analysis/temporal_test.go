package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemporalSignature(t *testing.T) {
	sig := temporalSignature("On Friday night around 6 PM, then 7:30 p.m. and again at noon on friday")
	assert.Equal(t, []string{"friday"}, sig.days)
	assert.Equal(t, []int{18 * 60, 19*60 + 30, 12 * 60}, sig.times)

	assert.Equal(t, []int{0, 21 * 60}, temporalSignature("12 am until 21:00").times)
	assert.True(t, temporalSignature("we just talked").empty())
}

func TestDayConflict(t *testing.T) {
	fri := temporalSignature("Friday night")
	sat := temporalSignature("on Saturday")
	none := temporalSignature("around 6 PM")

	assert.True(t, dayConflict(fri, sat))
	assert.False(t, dayConflict(fri, fri))
	assert.False(t, dayConflict(fri, none), "a statement without a day cannot contradict one")
	assert.False(t, dayConflict(fri, temporalSignature("Friday or Saturday")))
}

func TestTimeConflict(t *testing.T) {
	a := temporalSignature("Friday at 6 PM")
	assert.False(t, timeConflict(a, temporalSignature("Friday around 6:45 pm")))
	assert.True(t, timeConflict(a, temporalSignature("Friday at 10 PM")))
	assert.False(t, timeConflict(a, temporalSignature("at 10 PM")), "different or unknown days are not compared by time")
	assert.False(t, timeConflict(temporalSignature("Friday 11:30 pm"), temporalSignature("Friday 12:15 am")))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "6 PM", formatClock(18*60))
	assert.Equal(t, "12 AM", formatClock(0))
	assert.Equal(t, "7:05 AM", formatClock(7*60+5))
	assert.Equal(t, "12 PM", formatClock(12*60))
}
