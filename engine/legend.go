package engine

import "regexp"

// FormatLegend picks the display name of a series.
//
// Without a legend format the raw name is used as is. In regex mode the
// format is a pattern whose first capture group becomes the name; a bad
// pattern or a miss keeps the raw name. Otherwise the format is a
// template with ${__metricName} bound to the raw name.
func FormatLegend(t *Target, rawName string, vars Variables) string {
	if t == nil || t.LegendFormat == "" {
		return rawName
	}

	if t.LegendIsRegex {
		pattern := Substitute(t.LegendFormat, vars)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return rawName
		}
		m := re.FindStringSubmatchIndex(rawName)
		if len(m) < 4 || m[2] < 0 {
			return rawName
		}
		return rawName[m[2]:m[3]]
	}

	return Substitute(t.LegendFormat, MergeVariables(vars, Variables{VarMetricName: textVar(rawName)}))
}

// LegendError reports why a regex legend of t cannot be used with vars.
// Template legends and targets without a legend never fail.
func LegendError(t *Target, vars Variables) error {
	if t == nil || t.LegendFormat == "" || !t.LegendIsRegex {
		return nil
	}
	_, err := regexp.Compile(Substitute(t.LegendFormat, vars))
	return err
}
