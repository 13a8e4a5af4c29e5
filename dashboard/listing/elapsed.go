package listing

import (
	"fmt"
	"math"
	"time"
)

var elapsedUnits = []struct {
	name string
	size time.Duration
}{
	{"year", 365 * 24 * time.Hour},
	{"month", 30 * 24 * time.Hour},
	{"day", 24 * time.Hour},
	{"hour", time.Hour},
	{"minute", time.Minute},
}

// Elapsed renders the uptime column: the time since start in the largest
// whole unit, rounded, e.g. "3 hours" or "1 month".
func Elapsed(start, now time.Time) string {
	d := now.Sub(start)
	if d < 0 {
		d = 0
	}
	for _, u := range elapsedUnits {
		if d >= u.size {
			return plural(int(math.Round(float64(d)/float64(u.size))), u.name)
		}
	}
	return plural(int(math.Round(d.Seconds())), "second")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
