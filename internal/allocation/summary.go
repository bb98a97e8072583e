package allocation

import (
	"github.com/montanaflynn/stats"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

// Summarize 汇总一次分配的结果：平均需求、峰值需求、加班风险天数以及缺口总人数
func Summarize(records []domain.AllocationRecord) domain.PlanSummary {
	summary := domain.PlanSummary{}
	if len(records) == 0 {
		return summary
	}

	needed := make(stats.Float64Data, 0, len(records))
	for _, record := range records {
		needed = append(needed, record.WorkersNeeded)
		if record.OvertimeRisk {
			summary.OvertimeRiskDays++
		}
		summary.TotalShortage += record.Shortage
	}

	// 数据非空时 Mean 和 Max 不会返回错误
	mean, _ := needed.Mean()
	peak, _ := needed.Max()
	summary.AvgWorkersNeeded, _ = stats.Round(mean, 1)
	summary.PeakWorkersNeeded, _ = stats.Round(peak, 1)

	return summary
}
