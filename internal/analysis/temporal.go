package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	weekdayPattern = regexp.MustCompile(`(?i)\b(mon|tues|wednes|thurs|fri|satur|sun)day\b`)
	clockPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\b|\b(\d{1,2}):(\d{2})\b|\b(noon|midnight)\b`)
)

// clockTolerance is how far apart two clock times may be and still describe
// the same moment ("around 6" vs "6:30").
const clockTolerance = 60

// signature is the temporal content of a statement: the weekdays and the
// clock times (minutes after midnight) it mentions.
type signature struct {
	days  []string
	times []int
}

func temporalSignature(text string) signature {
	var sig signature
	seenDay := map[string]bool{}
	for _, m := range weekdayPattern.FindAllString(text, -1) {
		d := strings.ToLower(m)
		if !seenDay[d] {
			seenDay[d] = true
			sig.days = append(sig.days, d)
		}
	}
	sort.Strings(sig.days)

	for _, m := range clockPattern.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] != "":
			h, _ := strconv.Atoi(m[1])
			mins, _ := strconv.Atoi(m[2])
			if h == 12 {
				h = 0
			}
			if strings.EqualFold(m[3], "p") {
				h += 12
			}
			sig.times = append(sig.times, h*60+mins)
		case m[4] != "":
			h, _ := strconv.Atoi(m[4])
			mins, _ := strconv.Atoi(m[5])
			sig.times = append(sig.times, h*60+mins)
		case strings.EqualFold(m[6], "noon"):
			sig.times = append(sig.times, 12*60)
		case m[6] != "":
			sig.times = append(sig.times, 0)
		}
	}
	return sig
}

func (s signature) empty() bool {
	return len(s.days) == 0 && len(s.times) == 0
}

// dayConflict reports whether both statements name days and share none.
func dayConflict(a, b signature) bool {
	if len(a.days) == 0 || len(b.days) == 0 {
		return false
	}
	for _, d := range a.days {
		for _, e := range b.days {
			if d == e {
				return false
			}
		}
	}
	return true
}

// timeConflict reports whether two statements about the same day name clock
// times further apart than clockTolerance.
func timeConflict(a, b signature) bool {
	if len(a.times) == 0 || len(b.times) == 0 || len(a.days) == 0 || len(b.days) == 0 || dayConflict(a, b) {
		return false
	}
	for _, x := range a.times {
		for _, y := range b.times {
			if minuteDistance(x, y) <= clockTolerance {
				return false
			}
		}
	}
	return true
}

func minuteDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12*60 {
		d = 24*60 - d
	}
	return d
}

func formatClock(minutes int) string {
	h, m := minutes/60, minutes%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	if h%12 == 0 {
		h = 12
	} else {
		h %= 12
	}
	if m == 0 {
		return fmt.Sprintf("%d %s", h, suffix)
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix)
}

func titleDays(days []string) string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = strings.ToUpper(d[:1]) + d[1:]
	}
	return strings.Join(out, "/")
}
