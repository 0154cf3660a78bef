package domain

import "time"

// Settings is the per-merchant notification configuration. This service
// only ever reads it; the admin UI owns writes.
type Settings struct {
	OrderApproved       bool     `json:"order_approved"`
	OrderMessage        string   `json:"order_message"`
	OrderSchedule       Schedule `json:"-"`
	ShipOrders          bool     `json:"ship_orders"`
	ShipTrackingMessage string   `json:"ship_tracking_message"`
	ShipSchedule        Schedule `json:"-"`
}

// Schedule says when a queued notification may be delivered. The stored
// settings field is an integer minute count where zero means immediate;
// Schedule keeps that distinction explicit instead of leaking the sentinel.
type Schedule struct {
	delay time.Duration
}

func Immediate() Schedule {
	return Schedule{}
}

func DelayedBy(d time.Duration) Schedule {
	if d < 0 {
		d = 0
	}
	return Schedule{delay: d}
}

// ScheduleFromMinutes maps the stored settings value to a Schedule.
func ScheduleFromMinutes(minutes int64) Schedule {
	if minutes <= 0 {
		return Immediate()
	}
	return DelayedBy(time.Duration(minutes) * time.Minute)
}

// Delay reports the configured delay and whether delivery is deferred at all.
func (s Schedule) Delay() (time.Duration, bool) {
	return s.delay, s.delay > 0
}
