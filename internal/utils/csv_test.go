package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

func TestParseLaborHistory(t *testing.T) {
	t.Run("sample file", func(t *testing.T) {
		in := "date,workers_needed\n2024-01-01,45\n2024-01-02,52\n2024-01-03,48.5\n"
		points, err := ParseLaborHistory(strings.NewReader(in))
		require.NoError(t, err)
		require.Equal(t, []domain.LaborHistoryPoint{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), WorkersNeeded: 45},
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), WorkersNeeded: 52},
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), WorkersNeeded: 48.5},
		}, points)
	})

	t.Run("bad date reports line", func(t *testing.T) {
		in := "date,workers_needed\n2024-01-01,45\n01/02/2024,52\n"
		_, err := ParseLaborHistory(strings.NewReader(in))
		require.ErrorContains(t, err, "第 3 行")
	})

	t.Run("empty value reports line", func(t *testing.T) {
		in := "date,workers_needed\n2024-01-01,\n"
		_, err := ParseLaborHistory(strings.NewReader(in))
		require.ErrorContains(t, err, "第 2 行")
	})
}

func TestParseForecastPeriods(t *testing.T) {
	in := "date,workers_needed,workers_needed_upper,workers_needed_lower\n2024-01-01,52,60,44\n2024-01-02,,,\n"
	periods, err := ParseForecastPeriods(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, periods, 2)

	require.Equal(t, 52.0, *periods[0].WorkersNeeded)
	require.Equal(t, 60.0, *periods[0].WorkersNeededUpper)
	require.Equal(t, 44.0, *periods[0].WorkersNeededLower)

	require.Nil(t, periods[1].WorkersNeeded)
	require.Nil(t, periods[1].WorkersNeededUpper)

	_, err = ParseForecastPeriods(strings.NewReader("date,workers_needed\n2024-01-01,abc\n"))
	require.ErrorContains(t, err, "workers_needed")
}

func TestWriteAllocationTable(t *testing.T) {
	records := []domain.AllocationRecord{
		{
			Date:             time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			WorkersNeeded:    52,
			WorkersAvailable: 50,
			Workers:          map[string]int{"picking": 26, "packing": 15, "receiving": 10},
			OvertimeRisk:     true,
			Shortage:         2,
		},
	}

	buf := &bytes.Buffer{}
	err := WriteAllocationTable(buf, []string{"packing", "picking", "receiving"}, records)
	require.NoError(t, err)
	require.Equal(
		t,
		"date,workers_needed,workers_available,workers_packing,workers_picking,workers_receiving,overtime_risk,shortage\n"+
			"2024-01-01,52,50,15,26,10,true,2\n",
		buf.String(),
	)
}

func TestWriteForecastTable(t *testing.T) {
	needed, upper := 40.5, 44.0
	periods := []domain.ForecastPeriod{
		{
			Date:               time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			WorkersNeeded:      &needed,
			WorkersNeededUpper: &upper,
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteForecastTable(buf, periods))

	parsed, err := ParseForecastPeriods(buf)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.Equal(t, 40.5, *parsed[0].WorkersNeeded)
	require.Equal(t, 0.0, *parsed[0].WorkersNeededLower)
}
