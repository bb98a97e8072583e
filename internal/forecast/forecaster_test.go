package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

func newDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func linearHistory(days int, intercept, slope float64) []domain.LaborHistoryPoint {
	start := newDate(2024, 1, 1)
	points := []domain.LaborHistoryPoint{}
	for i := 0; i < days; i++ {
		points = append(points, domain.LaborHistoryPoint{
			Date:          start.AddDate(0, 0, i),
			WorkersNeeded: intercept + slope*float64(i),
		})
	}
	return points
}

func TestNew(t *testing.T) {
	t.Run("interval width 0.95", func(t *testing.T) {
		f, err := New(0.95)
		require.NoError(t, err)
		require.InDelta(t, 1.96, f.z, 0.001)
	})

	t.Run("interval width 0.8", func(t *testing.T) {
		f, err := New(0.8)
		require.NoError(t, err)
		require.InDelta(t, 1.2816, f.z, 0.001)
	})

	t.Run("invalid width", func(t *testing.T) {
		for _, w := range []float64{0, 1, -0.5, 2} {
			_, err := New(w)
			require.Error(t, err)
		}
	})
}

func TestForecast(t *testing.T) {
	f, err := New(0.8)
	require.NoError(t, err)

	t.Run("continues a linear trend", func(t *testing.T) {
		history := linearHistory(21, 40, 0.5)
		periods, err := f.Forecast(history, 7)
		require.NoError(t, err)
		require.Len(t, periods, 7)

		for i, p := range periods {
			require.Equal(t, newDate(2024, 1, 22+i), p.Date)
			require.InDelta(t, 40+0.5*float64(21+i), *p.WorkersNeeded, 1e-6)
			require.InDelta(t, *p.WorkersNeeded, *p.WorkersNeededUpper, 1e-6)
			require.InDelta(t, *p.WorkersNeeded, *p.WorkersNeededLower, 1e-6)
		}
	})

	t.Run("learns a weekly pattern", func(t *testing.T) {
		start := newDate(2024, 1, 1)
		history := []domain.LaborHistoryPoint{}
		for i := 0; i < 28; i++ {
			date := start.AddDate(0, 0, i)
			needed := 40.0
			if date.Weekday() == time.Saturday {
				needed = 60
			}
			history = append(history, domain.LaborHistoryPoint{Date: date, WorkersNeeded: needed})
		}

		periods, err := f.Forecast(history, 7)
		require.NoError(t, err)

		byWeekday := map[time.Weekday]float64{}
		for _, p := range periods {
			byWeekday[p.Date.Weekday()] = *p.WorkersNeeded
		}
		require.Greater(t, byWeekday[time.Saturday]-byWeekday[time.Monday], 15.0)
	})

	t.Run("bounds surround the forecast", func(t *testing.T) {
		history := linearHistory(30, 50, 0)
		for i := range history {
			if i%2 == 0 {
				history[i].WorkersNeeded += 5
			}
		}

		periods, err := f.Forecast(history, 3)
		require.NoError(t, err)
		for _, p := range periods {
			require.Greater(t, *p.WorkersNeededUpper, *p.WorkersNeeded)
			require.Less(t, *p.WorkersNeededLower, *p.WorkersNeeded)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		history := linearHistory(10, 20, -3)
		periods, err := f.Forecast(history, 14)
		require.NoError(t, err)
		for _, p := range periods {
			require.GreaterOrEqual(t, *p.WorkersNeeded, 0.0)
			require.GreaterOrEqual(t, *p.WorkersNeededLower, 0.0)
		}
	})

	t.Run("unsorted history is accepted and not mutated", func(t *testing.T) {
		history := linearHistory(5, 10, 1)
		history[0], history[4] = history[4], history[0]
		firstDate := history[0].Date

		periods, err := f.Forecast(history, 1)
		require.NoError(t, err)
		require.Equal(t, newDate(2024, 1, 6), periods[0].Date)
		require.Equal(t, firstDate, history[0].Date)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := f.Forecast(linearHistory(1, 10, 0), 7)
		require.ErrorIs(t, err, ErrNotEnoughHistory)

		_, err = f.Forecast(linearHistory(5, 10, 0), 0)
		require.ErrorIs(t, err, ErrInvalidHorizon)

		dup := linearHistory(3, 10, 0)
		dup[2].Date = dup[1].Date
		_, err = f.Forecast(dup, 1)
		require.ErrorContains(t, err, "2024-01-02")

		neg := linearHistory(3, 10, 0)
		neg[1].WorkersNeeded = -1
		_, err = f.Forecast(neg, 1)
		require.ErrorContains(t, err, "2024-01-02")
	})
}
