package queue

import (
	"fmt"
	"time"
)

// Schedule determines when a periodic job should run
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

type hourlySchedule struct {
	minute int
}

func (s hourlySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		from.Hour(), s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.Add(time.Hour)
	}
	return next
}

func (s hourlySchedule) String() string {
	return fmt.Sprintf("hourly at :%02d", s.minute)
}

type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		s.hour, s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}

// Every creates a schedule that runs at fixed intervals
func Every(d time.Duration) Schedule {
	return intervalSchedule{every: d}
}

// HourlyAt creates a schedule that runs every hour at the given minute
func HourlyAt(minute int) Schedule {
	return hourlySchedule{minute: minute}
}

// DailyAt creates a schedule that runs daily at the given time
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

func validSchedule(s Schedule) bool {
	switch v := s.(type) {
	case nil:
		return false
	case intervalSchedule:
		return v.every > 0
	case hourlySchedule:
		return v.minute >= 0 && v.minute < 60
	case dailySchedule:
		return v.hour >= 0 && v.hour < 24 && v.minute >= 0 && v.minute < 60
	default:
		return true
	}
}
