package allocation

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		require.Equal(t, domain.PlanSummary{}, Summarize(nil))
	})

	t.Run("mixed days", func(t *testing.T) {
		e, err := New(nil)
		require.NoError(t, err)

		records, err := e.Allocate([]domain.ForecastPeriod{
			period(1, 45),
			period(2, 52),
			period(3, 48),
			period(4, 55.5),
		}, 50)
		require.NoError(t, err)

		require.Equal(t, domain.PlanSummary{
			AvgWorkersNeeded:  50.1,
			PeakWorkersNeeded: 55.5,
			OvertimeRiskDays:  2,
			TotalShortage:     8,
		}, Summarize(records))
	})
}
