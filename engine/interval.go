package engine

import "strconv"

// MinIntervalMs is the backend's sampling granularity: whole minutes.
const MinIntervalMs int64 = 60000

// NormalizeInterval rounds ms up to the next whole minute. Anything that
// is not a positive interval becomes one minute.
func NormalizeInterval(ms int64) int64 {
	if ms <= 0 {
		return MinIntervalMs
	}
	return (ms + MinIntervalMs - 1) / MinIntervalMs * MinIntervalMs
}

var intervalUnits = []struct {
	suffix  string
	seconds int64
}{
	{"y", 365 * 24 * 3600},
	{"M", 30 * 24 * 3600},
	{"w", 7 * 24 * 3600},
	{"d", 24 * 3600},
	{"h", 3600},
	{"m", 60},
}

// FormatInterval renders seconds using the largest unit that divides
// them evenly, e.g. 300 -> "5m", 5400 -> "90m", 45 -> "45s".
func FormatInterval(sec int64) string {
	if sec > 0 {
		for _, u := range intervalUnits {
			if sec%u.seconds == 0 {
				return strconv.FormatInt(sec/u.seconds, 10) + u.suffix
			}
		}
	}
	return strconv.FormatInt(sec, 10) + "s"
}
