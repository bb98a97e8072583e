package allocation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func period(d int, workersNeeded float64) domain.ForecastPeriod {
	return domain.ForecastPeriod{Date: day(d), WorkersNeeded: &workersNeeded}
}

func TestNew(t *testing.T) {
	t.Run("nil ratios use defaults", func(t *testing.T) {
		e, err := New(nil)
		require.NoError(t, err)
		require.Equal(t, DefaultRatios(), e.Ratios())
		require.Equal(t, []string{"packing", "picking", "receiving"}, e.Functions())
	})

	t.Run("empty ratios use defaults", func(t *testing.T) {
		e, err := New(map[string]float64{})
		require.NoError(t, err)
		require.Equal(t, DefaultRatios(), e.Ratios())
	})

	t.Run("sum within tolerance", func(t *testing.T) {
		for _, ratios := range []map[string]float64{
			{"a": 1},
			{"a": 0.5, "b": 0.5},
			{"a": 0.5, "b": 0.505},
			{"a": 0.34, "b": 0.33, "c": 0.33},
			{"a": 0, "b": 1},
		} {
			_, err := New(ratios)
			require.NoError(t, err, "%v", ratios)
		}
	})

	t.Run("sum outside tolerance", func(t *testing.T) {
		for _, ratios := range []map[string]float64{
			{"a": 0.5, "b": 0.6},
			{"a": 0.5, "b": 0.48},
			{"a": 0.2},
		} {
			e, err := New(ratios)
			require.Nil(t, e)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr, "%v", ratios)
			require.Contains(t, cfgErr.Error(), "1.0")
		}
	})

	t.Run("ratio out of range", func(t *testing.T) {
		_, err := New(map[string]float64{"a": 1.5, "b": -0.5})
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("blank function name", func(t *testing.T) {
		_, err := New(map[string]float64{" ": 1})
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("caller mutation does not leak", func(t *testing.T) {
		ratios := map[string]float64{"a": 0.5, "b": 0.5}
		e, err := New(ratios)
		require.NoError(t, err)

		ratios["a"] = 0.9
		delete(ratios, "b")

		require.Equal(t, map[string]float64{"a": 0.5, "b": 0.5}, e.Ratios())
	})

	t.Run("default ratios are fresh copies", func(t *testing.T) {
		r := DefaultRatios()
		r["picking"] = 1
		require.Equal(t, 0.50, DefaultRatios()["picking"])
	})
}

func TestAllocate(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	t.Run("end to end example", func(t *testing.T) {
		records, err := e.Allocate([]domain.ForecastPeriod{period(1, 52)}, 50)
		require.NoError(t, err)
		require.Equal(
			t,
			"",
			cmp.Diff(
				[]domain.AllocationRecord{
					{
						Date:             day(1),
						WorkersNeeded:    52,
						WorkersAvailable: 50,
						Workers: map[string]int{
							"picking":   26,
							"packing":   15,
							"receiving": 10,
						},
						OvertimeRisk: true,
						Shortage:     2,
					},
				},
				records,
			),
		)
	})

	t.Run("truncation loses remainder", func(t *testing.T) {
		records, err := e.Allocate([]domain.ForecastPeriod{period(1, 45)}, 50)
		require.NoError(t, err)
		require.Len(t, records, 1)

		workers := records[0].Workers
		require.Equal(t, 22, workers["picking"])
		require.Equal(t, 13, workers["packing"])
		require.Equal(t, 9, workers["receiving"])
		require.Equal(t, 44, workers["picking"]+workers["packing"]+workers["receiving"])
		require.False(t, records[0].OvertimeRisk)
		require.Equal(t, 0, records[0].Shortage)
	})

	t.Run("floating point products are not under-counted", func(t *testing.T) {
		e, err := New(map[string]float64{"a": 0.29, "b": 0.71})
		require.NoError(t, err)

		records, err := e.Allocate([]domain.ForecastPeriod{period(1, 100)}, 100)
		require.NoError(t, err)
		require.Equal(t, map[string]int{"a": 29, "b": 71}, records[0].Workers)
	})

	t.Run("demand equal to capacity is not overtime", func(t *testing.T) {
		records, err := e.Allocate([]domain.ForecastPeriod{period(1, 50)}, 50)
		require.NoError(t, err)
		require.False(t, records[0].OvertimeRisk)
		require.Equal(t, 0, records[0].Shortage)
	})

	t.Run("fractional deficit rounds up", func(t *testing.T) {
		records, err := e.Allocate([]domain.ForecastPeriod{period(1, 50.3)}, 50)
		require.NoError(t, err)
		require.True(t, records[0].OvertimeRisk)
		require.Equal(t, 1, records[0].Shortage)
	})

	t.Run("shortage and overtime across capacities", func(t *testing.T) {
		for _, needed := range []float64{0, 1, 10, 49, 50, 51, 99.5} {
			for _, capacity := range []int{0, 10, 50, 100} {
				records, err := e.Allocate([]domain.ForecastPeriod{period(1, needed)}, capacity)
				require.NoError(t, err)

				rec := records[0]
				require.GreaterOrEqual(t, rec.Shortage, 0)
				require.Equal(t, needed > float64(capacity), rec.OvertimeRisk)
				require.Equal(t, rec.OvertimeRisk, rec.Shortage > 0)
				require.Equal(t, capacity, rec.WorkersAvailable)
			}
		}
	})

	t.Run("order and length preserved", func(t *testing.T) {
		periods := []domain.ForecastPeriod{period(3, 30), period(1, 10), period(2, 20)}
		records, err := e.Allocate(periods, 15)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i := range periods {
			require.Equal(t, periods[i].Date, records[i].Date)
			require.Equal(t, *periods[i].WorkersNeeded, records[i].WorkersNeeded)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		records, err := e.Allocate(nil, 50)
		require.NoError(t, err)
		require.NotNil(t, records)
		require.Empty(t, records)
	})

	t.Run("bounds are ignored", func(t *testing.T) {
		p := period(1, 40)
		upper, lower := 1000.0, -5.0
		p.WorkersNeededUpper = &upper
		p.WorkersNeededLower = &lower

		records, err := e.Allocate([]domain.ForecastPeriod{p}, 50)
		require.NoError(t, err)
		require.False(t, records[0].OvertimeRisk)
	})

	t.Run("missing demand names the date", func(t *testing.T) {
		_, err := e.Allocate([]domain.ForecastPeriod{period(1, 10), {Date: day(2)}}, 50)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Equal(t, day(2), vErr.Date)
		require.Contains(t, err.Error(), "2024-01-02")
	})

	t.Run("negative demand is rejected", func(t *testing.T) {
		_, err := e.Allocate([]domain.ForecastPeriod{period(5, -1)}, 50)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		require.Equal(t, day(5), vErr.Date)
	})

	t.Run("demand beyond whole-worker range is rejected", func(t *testing.T) {
		for _, needed := range []float64{1e19, 1e300, MaxWorkersNeeded + 1} {
			_, err := e.Allocate([]domain.ForecastPeriod{period(6, needed)}, 50)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, day(6), vErr.Date)
			require.Contains(t, err.Error(), "2024-01-06")
		}
	})

	t.Run("largest accepted demand stays non-negative", func(t *testing.T) {
		records, err := e.Allocate([]domain.ForecastPeriod{period(1, MaxWorkersNeeded)}, 0)
		require.NoError(t, err)

		rec := records[0]
		require.Equal(t, MaxWorkersNeeded, rec.Shortage)
		require.True(t, rec.OvertimeRisk)
		for function, workers := range rec.Workers {
			require.GreaterOrEqual(t, workers, 0, function)
		}
	})

	t.Run("every invalid date is reported", func(t *testing.T) {
		_, err := e.Allocate([]domain.ForecastPeriod{period(1, -1), period(2, 3), {Date: day(3)}}, 50)
		require.Error(t, err)
		require.Contains(t, err.Error(), "2024-01-01")
		require.Contains(t, err.Error(), "2024-01-03")
		require.NotContains(t, err.Error(), "2024-01-02")
	})

	t.Run("negative capacity", func(t *testing.T) {
		_, err := e.Allocate([]domain.ForecastPeriod{period(1, 1)}, -1)
		require.True(t, errors.Is(err, ErrNegativeCapacity))
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		periods := []domain.ForecastPeriod{period(1, 52)}
		before := *periods[0].WorkersNeeded

		_, err := e.Allocate(periods, 50)
		require.NoError(t, err)
		require.Equal(t, before, *periods[0].WorkersNeeded)
	})
}

func TestAllocateConcurrently(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(needed float64) {
			defer wg.Done()
			records, err := e.Allocate([]domain.ForecastPeriod{period(1, needed)}, 8)
			require.NoError(t, err)
			require.Equal(t, int(needed*0.5), records[0].Workers["picking"])
		}(float64(i * 2))
	}
	wg.Wait()
}
