package utils

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

// ValidateLaborHistoryPoints 检查用工历史是否可以用于预测
func ValidateLaborHistoryPoints(points []domain.LaborHistoryPoint) error {
	if len(points) < 2 {
		return errors.New("用工历史至少需要 2 天的数据")
	}

	seen := make(map[time.Time]bool, len(points))
	for i, p := range points {
		if math.IsNaN(p.WorkersNeeded) || math.IsInf(p.WorkersNeeded, 0) || p.WorkersNeeded < 0 {
			return fmt.Errorf("第 %d 项的工人数必须为非负数", i+1)
		}
		if seen[p.Date] {
			return fmt.Errorf("日期 %s 重复出现", p.Date.Format(time.DateOnly))
		}
		seen[p.Date] = true
	}

	return nil
}

func ValidateForecastHorizon(horizon int, maxHorizon int) error {
	if horizon < 1 {
		return errors.New("预测天数必须大于 0")
	}
	if horizon > maxHorizon {
		return fmt.Errorf("预测天数不能超过 %d 天", maxHorizon)
	}
	return nil
}

// ParseDate 解析 YYYY-MM-DD 格式的日期
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期 %s 格式错误，应为 YYYY-MM-DD", s)
	}
	return date, nil
}
