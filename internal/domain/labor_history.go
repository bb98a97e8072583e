package domain

import "time"

// LaborHistoryPoint 某一天实际所需的工人数
type LaborHistoryPoint struct {
	Date          time.Time `json:"date"`
	WorkersNeeded float64   `json:"workersNeeded"`
}

type LaborHistory struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Points      []LaborHistoryPoint `json:"points,omitempty"` // 列表接口中不返回
	CreatedBy   int64               `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	Version     int32               `json:"-"`
}
