package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/energy-etl/internal/model"
)

func TestTimeOfDayFor(t *testing.T) {
	t.Parallel()

	want := map[int]model.TimeOfDay{
		0: model.TimeOfDayNight, 4: model.TimeOfDayNight,
		5: model.TimeOfDayMorning, 11: model.TimeOfDayMorning,
		12: model.TimeOfDayAfternoon, 16: model.TimeOfDayAfternoon,
		17: model.TimeOfDayEvening, 20: model.TimeOfDayEvening,
		21: model.TimeOfDayNight, 23: model.TimeOfDayNight,
	}
	for hour, tod := range want {
		assert.Equal(t, tod, TimeOfDayFor(hour), "hour %d", hour)
	}
}

func TestSeasonFor(t *testing.T) {
	t.Parallel()

	want := []model.Season{
		model.SeasonWinter, model.SeasonWinter, // Jan, Feb
		model.SeasonSpring, model.SeasonSpring, model.SeasonSpring,
		model.SeasonSummer, model.SeasonSummer, model.SeasonSummer,
		model.SeasonAutumn, model.SeasonAutumn, model.SeasonAutumn,
		model.SeasonWinter, // Dec
	}
	for i, s := range want {
		assert.Equal(t, s, SeasonFor(time.Month(i+1)), "month %d", i+1)
	}
}

func TestDayOfWeek_MondayIsZero(t *testing.T) {
	t.Parallel()

	monday := time.Date(2023, time.January, 2, 12, 0, 0, 0, time.UTC)
	for i := range 7 {
		assert.Equal(t, i, DayOfWeek(monday.AddDate(0, 0, i)))
	}
}
