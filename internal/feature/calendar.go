package feature

import (
	"time"

	"github.com/sells-group/energy-etl/internal/model"
)

// TimeOfDayFor buckets an hour: [5,12) morning, [12,17) afternoon,
// [17,21) evening, otherwise night.
func TimeOfDayFor(hour int) model.TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return model.TimeOfDayMorning
	case hour >= 12 && hour < 17:
		return model.TimeOfDayAfternoon
	case hour >= 17 && hour < 21:
		return model.TimeOfDayEvening
	default:
		return model.TimeOfDayNight
	}
}

// SeasonFor maps a month to its meteorological season.
func SeasonFor(month time.Month) model.Season {
	switch month {
	case time.December, time.January, time.February:
		return model.SeasonWinter
	case time.March, time.April, time.May:
		return model.SeasonSpring
	case time.June, time.July, time.August:
		return model.SeasonSummer
	default:
		return model.SeasonAutumn
	}
}

// DayOfWeek returns the weekday with Monday as 0 and Sunday as 6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// applyCalendar fills the calendar attributes of o from its wall-clock time.
func applyCalendar(o *model.Observation, wall time.Time) {
	o.Hour = wall.Hour()
	o.Month = int(wall.Month())
	o.DayOfWeek = DayOfWeek(wall)
	o.IsWeekend = o.DayOfWeek == 5 || o.DayOfWeek == 6
	o.TimeOfDay = TimeOfDayFor(o.Hour)
	o.Season = SeasonFor(wall.Month())
	o.PeakFlag = o.TimeOfDay.Peak()
}
