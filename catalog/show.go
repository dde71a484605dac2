// Package catalog keeps the scraped metadata of every known show.
package catalog

import "fmt"

const notAiring = -1

var weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type Show struct {
	ID       string
	Name     string
	ImageURL string
	Synopsis string
	AirTime  AirTime
}

// AirTime is the estimated weekly release slot. WeekDay counts from Monday.
// The numeric fields are -1 and never rendered when the show isn't airing.
type AirTime struct {
	IsAiring bool
	WeekDay  int
	Hour     int
	Minute   int
}

func NotAiring() AirTime {
	return AirTime{WeekDay: notAiring, Hour: notAiring, Minute: notAiring}
}

func Weekdays() [7]string {
	return weekdays
}

func (a AirTime) Clock() string {
	if !a.IsAiring {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", a.Hour, a.Minute)
}

func (a AirTime) Day() string {
	if !a.IsAiring || a.WeekDay < 0 || a.WeekDay >= len(weekdays) {
		return ""
	}
	return weekdays[a.WeekDay]
}

func (a AirTime) String() string {
	if !a.IsAiring {
		return ""
	}
	return fmt.Sprintf("%v, %v", a.Day(), a.Clock())
}
