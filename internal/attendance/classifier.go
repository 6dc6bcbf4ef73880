// Package attendance classifies fingerprint scans against a school's time
// policy and folds classified scans into day and period summaries.
//
// Every function in the package is pure: no I/O, no shared state, safe for
// concurrent use. Incomplete input never fails; it degrades to StatusNormal.
package attendance

import (
	"fmt"
	"time"
)

// Classify maps one scan to a StatusResult. A zero timestamp, an unknown
// direction or a nil policy yields the "normal" fallback.
func Classify(ts time.Time, direction Direction, policy *TimePolicy) StatusResult {
	timeOfDay := ""
	if !ts.IsZero() {
		timeOfDay = ClockOf(ts).String()
	}
	if ts.IsZero() || !direction.Valid() || policy == nil {
		return fallback(direction, timeOfDay)
	}

	t := ClockOf(ts)
	if direction == DirectionIn {
		return classifyArrival(t, policy)
	}
	return classifyDeparture(t, policy)
}

func classifyArrival(t Clock, policy *TimePolicy) StatusResult {
	result := StatusResult{Direction: DirectionIn, TimeOfDay: t.String()}
	switch {
	case t <= policy.SchoolStartTime:
		result.StatusType = StatusEarlyArrival
		result.StatusLabel = "Early Arrival"
		result.Message = message("Arrived early at %s", t)
	case t <= policy.LateArrivalThreshold:
		result.StatusType = StatusOnTime
		result.StatusLabel = "On Time"
		result.Message = message("Arrived on time at %s", t)
	default:
		result.StatusType = StatusLate
		result.StatusLabel = "Late Arrival"
		result.Message = message("Arrived late at %s (after %s)", t, policy.LateArrivalThreshold)
	}
	return result
}

func classifyDeparture(t Clock, policy *TimePolicy) StatusResult {
	result := StatusResult{Direction: DirectionOut, TimeOfDay: t.String()}
	switch {
	case t < policy.EarlyDepartureThreshold:
		result.StatusType = StatusEarlyDeparture
		result.StatusLabel = "Early Departure"
		result.Message = message("Left early at %s (before %s)", t, policy.EarlyDepartureThreshold)
	case t < policy.SchoolEndTime:
		result.StatusType = StatusNormalDeparture
		result.StatusLabel = "Normal Departure"
		result.Message = message("Left at %s", t)
	default:
		result.StatusType = StatusAfterHours
		result.StatusLabel = "After Hours"
		result.Message = message("Left after school hours at %s", t)
	}
	return result
}

func fallback(direction Direction, timeOfDay string) StatusResult {
	label := "Check Out"
	if direction == DirectionIn {
		label = "Check In"
	}
	return StatusResult{
		Direction:   direction,
		StatusLabel: label,
		StatusType:  StatusNormal,
		TimeOfDay:   timeOfDay,
	}
}

func message(format string, args ...interface{}) *string {
	msg := fmt.Sprintf(format, args...)
	return &msg
}
