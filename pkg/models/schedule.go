package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type DeliveryMode string

const (
	DeliveryNow      DeliveryMode = "now"
	DeliveryLater    DeliveryMode = "later"
	DeliveryTomorrow DeliveryMode = "tomorrow"
)

var modeLabels = map[DeliveryMode]string{
	DeliveryNow:      "Eat Now (deliver at next stop)",
	DeliveryLater:    "Eat Later (schedule at a later stop)",
	DeliveryTomorrow: "Eat Tomorrow",
}

// Label is the human readable name persisted as delivery_mode.
func (m DeliveryMode) Label() string {
	return modeLabels[m]
}

// ParseDeliveryMode accepts a short code or a full label.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	s = strings.TrimSpace(s)
	for mode, label := range modeLabels {
		if strings.EqualFold(s, string(mode)) || s == label {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown delivery mode %q", s)
}

// Stops are the scheduled stops a Later delivery can target.
var Stops = []string{
	"Stop 1 - Highway Junction",
	"Stop 2 - Petrol Pump",
	"Stop 3 - Bus Stand",
	"Stop 4 - City Outskirts",
}

const DateLayout = "2006-01-02"

var (
	ErrUnknownStop = errors.New("unknown stop")
	ErrNoDate      = errors.New("delivery date is required")
)

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// DeliverySchedule says when and where an order is handed over. Stop holds the
// scheduled stop for Later and the drop point for Tomorrow.
type DeliverySchedule struct {
	Mode DeliveryMode
	Stop string
	At   TimeOfDay
	Date time.Time
}

func DeliverNow() DeliverySchedule {
	return DeliverySchedule{Mode: DeliveryNow}
}

func DeliverLater(stop string, at TimeOfDay) (DeliverySchedule, error) {
	if !isStop(stop) {
		return DeliverySchedule{}, fmt.Errorf("%w: %q", ErrUnknownStop, stop)
	}
	return DeliverySchedule{Mode: DeliveryLater, Stop: stop, At: at}, nil
}

func DeliverTomorrow(date time.Time, dropPoint string) (DeliverySchedule, error) {
	if date.IsZero() {
		return DeliverySchedule{}, ErrNoDate
	}
	y, m, d := date.Date()
	return DeliverySchedule{
		Mode: DeliveryTomorrow,
		Stop: dropPoint,
		Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}, nil
}

func isStop(stop string) bool {
	for _, s := range Stops {
		if s == stop {
			return true
		}
	}
	return false
}

// Fields is the free-form schedule object stored next to delivery_mode.
func (s DeliverySchedule) Fields() map[string]string {
	switch s.Mode {
	case DeliveryLater:
		return map[string]string{"stop": s.Stop, "time": s.At.String()}
	case DeliveryTomorrow:
		return map[string]string{"date": s.Date.Format(DateLayout), "stop": s.Stop}
	default:
		return map[string]string{}
	}
}

// ScheduleFromFields rebuilds a schedule from stored fields without the
// constructor checks; stored history is taken as written.
func ScheduleFromFields(mode DeliveryMode, fields map[string]string) DeliverySchedule {
	s := DeliverySchedule{Mode: mode}
	switch mode {
	case DeliveryLater:
		s.Stop = fields["stop"]
		if at, err := ParseTimeOfDay(fields["time"]); err == nil {
			s.At = at
		}
	case DeliveryTomorrow:
		s.Stop = fields["stop"]
		if d, err := time.Parse(DateLayout, fields["date"]); err == nil {
			s.Date = d
		}
	}
	return s
}
