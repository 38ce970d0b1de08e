package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Service is a static catalog entry. The catalog is fixed at process start
// and appointments denormalize name/price/duration at booking time, so later
// catalog edits never rewrite history.
type Service struct {
	Key             string
	Name            string
	DurationMinutes int
	PriceUSD        int
}

var services = map[string]Service{
	"haircut":   {Key: "haircut", Name: "Haircut", DurationMinutes: 30, PriceUSD: 25},
	"coloring":  {Key: "coloring", Name: "Hair Coloring", DurationMinutes: 60, PriceUSD: 75},
	"styling":   {Key: "styling", Name: "Hair Styling", DurationMinutes: 45, PriceUSD: 45},
	"treatment": {Key: "treatment", Name: "Hair Treatment", DurationMinutes: 90, PriceUSD: 120},
}

// timeSlots is the fixed daily grid of bookable start times. The 13:00 hour
// is the lunch break and is intentionally absent.
var timeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "14:00", "14:30", "15:00", "15:30",
	"16:00", "16:30", "17:00", "17:30",
}

// LookupService resolves a service by key, case-insensitively.
func LookupService(key string) (Service, bool) {
	svc, ok := services[strings.ToLower(strings.TrimSpace(key))]
	return svc, ok
}

// Services returns all catalog entries ordered by key.
func Services() []Service {
	out := make([]Service, 0, len(services))
	for _, svc := range services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TimeSlots returns a copy of the daily slot grid in chronological order.
func TimeSlots() []string {
	out := make([]string, len(timeSlots))
	copy(out, timeSlots)
	return out
}

// IsValidSlot reports whether t is one of the grid's start times.
func IsValidSlot(t string) bool {
	for _, slot := range timeSlots {
		if slot == t {
			return true
		}
	}
	return false
}

// IsWorkingDay reports whether the salon is open on the given date.
// Open Monday through Saturday, closed Sundays.
func IsWorkingDay(date time.Time) bool {
	return date.Weekday() != time.Sunday
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("catalog: invalid date %q: %w", value, err)
	}
	return d, nil
}
