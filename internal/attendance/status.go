package attendance

import "strings"

// Direction marks a scan as a check-in or a check-out.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// ParseDirection normalises a direction string; ok is false for anything but IN/OUT.
func ParseDirection(raw string) (Direction, bool) {
	d := Direction(strings.ToUpper(strings.TrimSpace(raw)))
	return d, d.Valid()
}

// Valid reports whether d is IN or OUT.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// StatusType is the semantic classification of a scan.
type StatusType string

const (
	StatusOnTime          StatusType = "on-time"
	StatusEarlyArrival    StatusType = "early-arrival"
	StatusLate            StatusType = "late"
	StatusNormalDeparture StatusType = "normal-departure"
	StatusEarlyDeparture  StatusType = "early-departure"
	StatusAfterHours      StatusType = "after-hours"
	StatusNormal          StatusType = "normal"
)

// StatusTypes lists every status in display order.
var StatusTypes = []StatusType{
	StatusEarlyArrival,
	StatusOnTime,
	StatusLate,
	StatusEarlyDeparture,
	StatusNormalDeparture,
	StatusAfterHours,
	StatusNormal,
}

// Presentation is the display hint a client pairs with a status.
type Presentation struct {
	Style string `json:"style"`
	Icon  string `json:"icon"`
}

var presentations = map[StatusType]Presentation{
	StatusEarlyArrival:    {Style: "info", Icon: "sunrise"},
	StatusOnTime:          {Style: "success", Icon: "check-circle"},
	StatusLate:            {Style: "danger", Icon: "alert-circle"},
	StatusEarlyDeparture:  {Style: "warning", Icon: "log-out"},
	StatusNormalDeparture: {Style: "success", Icon: "log-out"},
	StatusAfterHours:      {Style: "secondary", Icon: "moon"},
	StatusNormal:          {Style: "default", Icon: "clock"},
}

// Presentation returns the fixed style/icon pair for s.
func (s StatusType) Presentation() Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return presentations[StatusNormal]
}

// StatusResult is the outcome of classifying one scan.
type StatusResult struct {
	Direction   Direction  `json:"direction"`
	StatusLabel string     `json:"statusLabel"`
	StatusType  StatusType `json:"statusType"`
	Message     *string    `json:"message"`
	TimeOfDay   string     `json:"timeOfDay"`
}
