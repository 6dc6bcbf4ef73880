package attendance

import (
	"errors"
	"fmt"
)

// TimePolicy is a school's configured day boundaries and punctuality thresholds.
// All values are same-day wall-clock times; no timezone arithmetic is applied.
type TimePolicy struct {
	SchoolStartTime         Clock `json:"schoolStartTime"`
	SchoolEndTime           Clock `json:"schoolEndTime"`
	LateArrivalThreshold    Clock `json:"lateArrivalThreshold"`
	EarlyDepartureThreshold Clock `json:"earlyDepartureThreshold"`
}

// Policy validation failures.
var (
	ErrPolicyClockRange     = errors.New("policy times must fall within a single day")
	ErrPolicyDayOrder       = errors.New("school end time must be after school start time")
	ErrPolicyLateThreshold  = errors.New("late arrival threshold must be after school start time")
	ErrPolicyEarlyThreshold = errors.New("early departure threshold must be before school end time")
)

// ParsePolicy builds a policy from "HH:MM" strings.
func ParsePolicy(start, end, late, earlyDeparture string) (*TimePolicy, error) {
	var (
		policy TimePolicy
		err    error
	)
	if policy.SchoolStartTime, err = ParseClock(start); err != nil {
		return nil, fmt.Errorf("schoolStartTime: %w", err)
	}
	if policy.SchoolEndTime, err = ParseClock(end); err != nil {
		return nil, fmt.Errorf("schoolEndTime: %w", err)
	}
	if policy.LateArrivalThreshold, err = ParseClock(late); err != nil {
		return nil, fmt.Errorf("lateArrivalThreshold: %w", err)
	}
	if policy.EarlyDepartureThreshold, err = ParseClock(earlyDeparture); err != nil {
		return nil, fmt.Errorf("earlyDepartureThreshold: %w", err)
	}
	return &policy, nil
}

// Validate checks the chronological ordering a settings editor must enforce.
// Classify never calls it: a malformed policy still classifies, it just lands
// in whichever branch the comparisons select.
func (p TimePolicy) Validate() error {
	for _, c := range []Clock{p.SchoolStartTime, p.SchoolEndTime, p.LateArrivalThreshold, p.EarlyDepartureThreshold} {
		if !c.Valid() {
			return ErrPolicyClockRange
		}
	}
	if p.SchoolEndTime <= p.SchoolStartTime {
		return ErrPolicyDayOrder
	}
	if p.LateArrivalThreshold <= p.SchoolStartTime {
		return ErrPolicyLateThreshold
	}
	if p.EarlyDepartureThreshold >= p.SchoolEndTime {
		return ErrPolicyEarlyThreshold
	}
	return nil
}
