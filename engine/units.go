package engine

import (
	"sort"
	"strings"
)

// unitSuffixes maps series-name suffixes to display units. Sorted longest
// first at init so the most specific suffix wins.
var unitSuffixes = func() []struct{ suffix, unit string } {
	table := []struct{ suffix, unit string }{
		{"Octets", "bytes"},
		{"BitRate", "bps"},
		{"Util", "percent"},
		{"Errors", "short"},
		{"Discards", "short"},
		{"Pkts", "pps"},
		{"Latency", "ms"},
	}
	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i].suffix) > len(table[j].suffix)
	})
	return table
}()

// InferUnit guesses a unit from the raw series name, or returns "".
func InferUnit(name string) string {
	for _, s := range unitSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.unit
		}
	}
	return ""
}
