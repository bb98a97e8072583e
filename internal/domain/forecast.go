package domain

import "time"

// ForecastPeriod 预测结果中的一天
type ForecastPeriod struct {
	Date               time.Time `json:"date"`
	WorkersNeeded      *float64  `json:"workersNeeded"`                // 为 nil 表示该天缺少需求数据
	WorkersNeededUpper *float64  `json:"workersNeededUpper,omitempty"` // 置信区间上界，分配时不使用
	WorkersNeededLower *float64  `json:"workersNeededLower,omitempty"` // 置信区间下界，分配时不使用
}
