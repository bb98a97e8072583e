package utils

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

// 数值列先按字符串读入，方便区分空值和格式错误
type laborHistoryRow struct {
	Date          string `csv:"date"`
	WorkersNeeded string `csv:"workers_needed"`
}

type forecastRow struct {
	Date               string `csv:"date"`
	WorkersNeeded      string `csv:"workers_needed"`
	WorkersNeededUpper string `csv:"workers_needed_upper"`
	WorkersNeededLower string `csv:"workers_needed_lower"`
}

type forecastOutputRow struct {
	Date               string  `csv:"date"`
	WorkersNeeded      float64 `csv:"workers_needed"`
	WorkersNeededUpper float64 `csv:"workers_needed_upper"`
	WorkersNeededLower float64 `csv:"workers_needed_lower"`
}

// ParseLaborHistory 解析 date,workers_needed 格式的历史数据
func ParseLaborHistory(in io.Reader) ([]domain.LaborHistoryPoint, error) {
	rows := []laborHistoryRow{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("无法解析 CSV: %w", err)
	}

	points := make([]domain.LaborHistoryPoint, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // 第 1 行是表头

		date, err := time.Parse(time.DateOnly, strings.TrimSpace(row.Date))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行的日期格式错误，应为 YYYY-MM-DD", line)
		}

		value, err := parseOptionalFloat(row.WorkersNeeded)
		if err != nil || value == nil {
			return nil, fmt.Errorf("第 %d 行的 workers_needed 不是有效数字", line)
		}

		points = append(points, domain.LaborHistoryPoint{
			Date:          date,
			WorkersNeeded: *value,
		})
	}

	return points, nil
}

// ParseForecastPeriods 解析预测表，workers_needed 为空时保留为缺失值，交给分配引擎报错
func ParseForecastPeriods(in io.Reader) ([]domain.ForecastPeriod, error) {
	rows := []forecastRow{}
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return nil, fmt.Errorf("无法解析 CSV: %w", err)
	}

	periods := make([]domain.ForecastPeriod, 0, len(rows))
	for i, row := range rows {
		line := i + 2

		date, err := time.Parse(time.DateOnly, strings.TrimSpace(row.Date))
		if err != nil {
			return nil, fmt.Errorf("第 %d 行的日期格式错误，应为 YYYY-MM-DD", line)
		}

		period := domain.ForecastPeriod{Date: date}
		if period.WorkersNeeded, err = parseOptionalFloat(row.WorkersNeeded); err != nil {
			return nil, fmt.Errorf("第 %d 行的 workers_needed 不是有效数字", line)
		}
		if period.WorkersNeededUpper, err = parseOptionalFloat(row.WorkersNeededUpper); err != nil {
			return nil, fmt.Errorf("第 %d 行的 workers_needed_upper 不是有效数字", line)
		}
		if period.WorkersNeededLower, err = parseOptionalFloat(row.WorkersNeededLower); err != nil {
			return nil, fmt.Errorf("第 %d 行的 workers_needed_lower 不是有效数字", line)
		}

		periods = append(periods, period)
	}

	return periods, nil
}

// WriteForecastTable 输出预测结果，缺失的上下界输出为 0
func WriteForecastTable(out io.Writer, periods []domain.ForecastPeriod) error {
	rows := make([]forecastOutputRow, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, forecastOutputRow{
			Date:               p.Date.Format(time.DateOnly),
			WorkersNeeded:      valueOrZero(p.WorkersNeeded),
			WorkersNeededUpper: valueOrZero(p.WorkersNeededUpper),
			WorkersNeededLower: valueOrZero(p.WorkersNeededLower),
		})
	}

	return gocsv.Marshal(&rows, out)
}

// AllocationTableHeader 返回分配表的表头，每个职能一列，列名为 workers_<职能>
func AllocationTableHeader(functions []string) []string {
	header := []string{"date", "workers_needed", "workers_available"}
	for _, function := range functions {
		header = append(header, "workers_"+function)
	}
	return append(header, "overtime_risk", "shortage")
}

// WriteAllocationTable 按 functions 的顺序输出分配表
func WriteAllocationTable(out io.Writer, functions []string, records []domain.AllocationRecord) error {
	// 职能列是动态的，不能直接用结构体标签，这里逐行写入
	w := gocsv.DefaultCSVWriter(out)

	if err := w.Write(AllocationTableHeader(functions)); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			record.Date.Format(time.DateOnly),
			strconv.FormatFloat(record.WorkersNeeded, 'f', -1, 64),
			strconv.Itoa(record.WorkersAvailable),
		}
		for _, function := range functions {
			row = append(row, strconv.Itoa(record.Workers[function]))
		}
		row = append(row, strconv.FormatBool(record.OvertimeRisk), strconv.Itoa(record.Shortage))

		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
