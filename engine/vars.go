package engine

import (
	"math"
	"strconv"
	"time"
)

// Reserved variable names. They always resolve and always win over
// caller-supplied variables of the same name.
const (
	VarInterval       = "__interval"
	VarIntervalMs     = "__interval_ms"
	VarIntervalSec    = "__interval_sec"
	VarFromSec        = "__from_sec"
	VarFromDatetime   = "__from_datetime"
	VarToSec          = "__to_sec"
	VarToDatetime     = "__to_datetime"
	VarDevice         = "__device"
	VarChild          = "__child"
	VarAttribute      = "__attribute"
	VarMetricName     = "__metricName"
	intervalSecAlias  = "__interval_s"
	fromSecAlias      = "__from_s"
	toSecAlias        = "__to_s"
	timeIntervalAlias = "__timeInterval"
	timeFromAlias     = "__timeFrom"
	timeToAlias       = "__timeTo"
)

// DatetimeLayout renders __from_datetime and __to_datetime.
const DatetimeLayout = "2006-01-02 15:04:05"

// deprecated names kept resolvable for older saved queries
var varAliases = map[string]string{
	intervalSecAlias:  VarIntervalSec,
	timeIntervalAlias: VarIntervalSec,
	fromSecAlias:      VarFromSec,
	timeFromAlias:     VarFromSec,
	toSecAlias:        VarToSec,
	timeToAlias:       VarToSec,
}

func textVar(s string) Variable { return Variable{Text: s, Value: s} }

func intVar(n int64) Variable { return Variable{Text: strconv.FormatInt(n, 10), Value: n} }

// BuildVariables derives the reserved variables for one target. intervalMs
// is expected to be normalized already. A nil loc formats datetimes in the
// location carried by the range endpoints. A nil target yields empty
// selectors.
func BuildVariables(rng TimeRange, intervalMs int64, t *Target, loc *time.Location) Variables {
	sec := int64(math.Round(float64(intervalMs) / 1000))

	vars := Variables{
		VarInterval:    textVar(FormatInterval(sec)),
		VarIntervalMs:  intVar(intervalMs),
		VarIntervalSec: intVar(sec),
		VarDevice:      textVar(""),
		VarChild:       textVar(""),
		VarAttribute:   textVar(""),
		VarMetricName:  textVar(""),
	}
	vars[VarFromSec], vars[VarFromDatetime] = instantVars(rng.From, loc)
	vars[VarToSec], vars[VarToDatetime] = instantVars(rng.To, loc)

	if t != nil {
		vars[VarDevice] = textVar(t.Device)
		vars[VarChild] = textVar(t.Child)
		vars[VarAttribute] = textVar(t.Attribute)
	}

	for alias, name := range varAliases {
		vars[alias] = vars[name]
	}
	return vars
}

// instantVars renders an endpoint as truncated Unix seconds and as a
// datetime. A zero instant renders as empty strings.
func instantVars(ts time.Time, loc *time.Location) (Variable, Variable) {
	if ts.IsZero() {
		return textVar(""), textVar("")
	}
	if loc != nil {
		ts = ts.In(loc)
	}
	return intVar(ts.Unix()), textVar(ts.Format(DatetimeLayout))
}

// MergeVariables layers reserved over external; reserved wins on
// conflict. Neither input is modified.
func MergeVariables(external, reserved Variables) Variables {
	out := make(Variables, len(external)+len(reserved))
	for k, v := range external {
		out[k] = v
	}
	for k, v := range reserved {
		out[k] = v
	}
	return out
}
