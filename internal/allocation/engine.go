package allocation

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

// 浮点乘法会出现 100*0.29 = 28.999999999999996 这种情况，向下取整前先补上这一点误差
const floorEpsilon = 1e-9

// MaxWorkersNeeded 单日所需工人数的上限，超过后换算成整人会溢出，数据库中对应的列也是 INTEGER
const MaxWorkersNeeded = math.MaxInt32

// Engine 根据需求预测和可用人数计算每天各职能的人数分配
//
// Engine 创建后不再修改任何字段，可以被多个 goroutine 同时使用
type Engine struct {
	ratios    map[string]float64
	functions []string // 按名称排序，用于导出表格时固定列顺序
}

// New 使用给定的分配比例创建 Engine，ratios 为空时使用 DefaultRatios
//
// 比例不合法时返回 *ConfigurationError，此时不会返回 Engine
func New(ratios map[string]float64) (*Engine, error) {
	if len(ratios) == 0 {
		ratios = DefaultRatios()
	}

	if err := validateRatios(ratios); err != nil {
		return nil, err
	}

	// 复制一份，调用方之后修改传入的 map 不会影响 Engine
	owned := maps.Clone(ratios)

	return &Engine{
		ratios:    owned,
		functions: slices.Sorted(maps.Keys(owned)),
	}, nil
}

// Functions 返回所有职能名称（已排序）
func (e *Engine) Functions() []string {
	return slices.Clone(e.functions)
}

// Ratios 返回分配比例的副本
func (e *Engine) Ratios() map[string]float64 {
	return maps.Clone(e.ratios)
}

/**
 * 按比例分配工人
 * 对每一天：
 * 		1. 每个职能的人数为 floor(workersNeeded * ratio + floorEpsilon)，采用截断而不是四舍五入，
 * 		   因此各职能人数之和可能小于 workersNeeded，剩余部分不会再分配；
 * 		   floorEpsilon 用于抵消浮点误差，距离下一个整数不足 1e-9 的乘积会被算作该整数
 * 		2. workersNeeded 严格大于 capacity 时标记加班风险
 * 		3. shortage = max(0, workersNeeded - capacity)，需求为小数时向上取整到整人
 * 返回结果与 periods 一一对应且顺序相同，periods 为空时返回空结果
 */
func (e *Engine) Allocate(periods []domain.ForecastPeriod, capacity int) ([]domain.AllocationRecord, error) {
	if capacity < 0 {
		return nil, ErrNegativeCapacity
	}

	// 先把所有不合法的天数找出来，方便调用方一次性修正
	var errs []error
	for _, period := range periods {
		if err := validatePeriod(period); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	records := make([]domain.AllocationRecord, 0, len(periods))
	for _, period := range periods {
		workersNeeded := *period.WorkersNeeded

		workers := make(map[string]int, len(e.ratios))
		for function, ratio := range e.ratios {
			workers[function] = int(math.Floor(workersNeeded*ratio + floorEpsilon))
		}

		shortage := 0
		if workersNeeded > float64(capacity) {
			shortage = int(math.Ceil(workersNeeded - float64(capacity)))
		}

		records = append(records, domain.AllocationRecord{
			Date:             period.Date,
			WorkersNeeded:    workersNeeded,
			WorkersAvailable: capacity,
			Workers:          workers,
			OvertimeRisk:     workersNeeded > float64(capacity),
			Shortage:         shortage,
		})
	}

	return records, nil
}

func validatePeriod(period domain.ForecastPeriod) error {
	if period.WorkersNeeded == nil {
		return &ValidationError{Date: period.Date, Reason: "缺少所需工人数"}
	}

	v := *period.WorkersNeeded
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &ValidationError{Date: period.Date, Reason: "所需工人数不是有效数字"}
	case v < 0:
		return &ValidationError{Date: period.Date, Reason: "所需工人数不能为负数"}
	case v > MaxWorkersNeeded:
		return &ValidationError{Date: period.Date, Reason: fmt.Sprintf("所需工人数不能超过 %d", MaxWorkersNeeded)}
	}

	return nil
}
