package domain

import "time"

// AllocationRecord 与 ForecastPeriod 一一对应的分配结果
type AllocationRecord struct {
	Date             time.Time      `json:"date"`
	WorkersNeeded    float64        `json:"workersNeeded"`
	WorkersAvailable int            `json:"workersAvailable"`
	Workers          map[string]int `json:"workers"` // 职能名 -> 分配人数
	OvertimeRisk     bool           `json:"overtimeRisk"`
	Shortage         int            `json:"shortage"`
}

type PlanSummary struct {
	AvgWorkersNeeded  float64 `json:"avgWorkersNeeded"`
	PeakWorkersNeeded float64 `json:"peakWorkersNeeded"`
	OvertimeRiskDays  int     `json:"overtimeRiskDays"`
	TotalShortage     int     `json:"totalShortage"`
}

type AllocationPlan struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	LaborHistoryID int64              `json:"laborHistoryID"`
	Capacity       int                `json:"capacity"`
	Horizon        int                `json:"horizon"`
	Ratios         map[string]float64 `json:"ratios"`
	Periods        []ForecastPeriod   `json:"periods,omitempty"`
	Records        []AllocationRecord `json:"records,omitempty"`
	Summary        *PlanSummary       `json:"summary,omitempty"`
	CreatedBy      int64              `json:"createdBy"`
	CreatedAt      time.Time          `json:"createdAt"`
	Version        int32              `json:"-"`
}
