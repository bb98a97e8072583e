package allocation

import (
	"fmt"
	"math"
	"strings"
)

// RatioSumTolerance 比例之和与 1.0 之间允许的最大偏差
const RatioSumTolerance = 0.01

// DefaultRatios 返回默认的职能分配比例，每次调用都返回新的 map，调用方可以随意修改
func DefaultRatios() map[string]float64 {
	return map[string]float64{
		"picking":   0.50,
		"packing":   0.30,
		"receiving": 0.20,
	}
}

func validateRatios(ratios map[string]float64) error {
	sum := 0.0
	for name, ratio := range ratios {
		if strings.TrimSpace(name) == "" {
			return &ConfigurationError{Reason: "职能名称不能为空"}
		}
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			return &ConfigurationError{Reason: fmt.Sprintf("职能 %s 的比例不是有效数字", name)}
		}
		if ratio < 0 || ratio > 1 {
			return &ConfigurationError{Reason: fmt.Sprintf("职能 %s 的比例 %.2f 不在 [0, 1] 之间", name, ratio)}
		}
		sum += ratio
	}

	if math.Abs(sum-1.0) > RatioSumTolerance {
		return &ConfigurationError{Reason: fmt.Sprintf("分配比例之和必须为 1.0（当前为 %.2f）", sum)}
	}

	return nil
}
