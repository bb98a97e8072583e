package forecast

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// 至少要有两周的数据才估计星期效应，否则每个星期几只有一个样本，残差会被完全吸收
const minPointsForWeekly = 14

var (
	ErrNotEnoughHistory = errors.New("历史数据至少需要 2 天")
	ErrInvalidHorizon   = errors.New("预测天数必须大于 0")
)

// Forecaster 用线性趋势加星期效应对每日所需工人数进行预测
type Forecaster struct {
	intervalWidth float64
	z             float64 // 置信区间对应的标准正态分位数
}

func New(intervalWidth float64) (*Forecaster, error) {
	if intervalWidth <= 0 || intervalWidth >= 1 {
		return nil, fmt.Errorf("置信区间宽度必须在 (0, 1) 之间，当前为 %v", intervalWidth)
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}

	return &Forecaster{
		intervalWidth: intervalWidth,
		z:             normal.Quantile(0.5 + intervalWidth/2),
	}, nil
}

func (f *Forecaster) IntervalWidth() float64 {
	return f.intervalWidth
}

/**
 * 预测未来 horizon 天每天所需的工人数
 * yhat = alpha + beta * x + weekly[weekday]
 * 其中:
 * 		1. x 为距离历史数据第一天的天数，alpha 和 beta 由最小二乘拟合得到
 * 		2. weekly 为去掉趋势后每个星期几的平均残差（数据不足两周时全部为 0）
 * 		3. 置信区间为 yhat ± z * sigma，sigma 为去掉趋势和星期效应后残差的样本标准差
 * 预测值和上下界都不会小于 0
 */
func (f *Forecaster) Forecast(history []domain.LaborHistoryPoint, horizon int) ([]domain.ForecastPeriod, error) {
	if horizon <= 0 {
		return nil, ErrInvalidHorizon
	}

	points, err := normalizeHistory(history)
	if err != nil {
		return nil, err
	}

	first := points[0].Date
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = daysBetween(first, p.Date)
		ys[i] = p.WorkersNeeded
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	// 计算星期效应
	var weekly [7]float64
	residuals := make([]float64, len(points))
	for i := range points {
		residuals[i] = ys[i] - (alpha + beta*xs[i])
	}
	if len(points) >= minPointsForWeekly {
		var sums [7]float64
		var counts [7]int
		for i, p := range points {
			sums[p.Date.Weekday()] += residuals[i]
			counts[p.Date.Weekday()]++
		}
		for wd := range weekly {
			if counts[wd] > 0 {
				weekly[wd] = sums[wd] / float64(counts[wd])
			}
		}
		for i, p := range points {
			residuals[i] -= weekly[p.Date.Weekday()]
		}
	}

	sigma, err := stats.StandardDeviationSample(residuals)
	if err != nil {
		return nil, err
	}
	spread := f.z * sigma

	last := points[len(points)-1].Date
	periods := make([]domain.ForecastPeriod, 0, horizon)
	for h := 1; h <= horizon; h++ {
		date := last.AddDate(0, 0, h)
		x := daysBetween(first, date)

		yhat := math.Max(0, alpha+beta*x+weekly[date.Weekday()])
		upper := yhat + spread
		lower := math.Max(0, yhat-spread)

		periods = append(periods, domain.ForecastPeriod{
			Date:               date,
			WorkersNeeded:      &yhat,
			WorkersNeededUpper: &upper,
			WorkersNeededLower: &lower,
		})
	}

	return periods, nil
}

// normalizeHistory 复制并按日期排序历史数据，同时检查数据是否合法
func normalizeHistory(history []domain.LaborHistoryPoint) ([]domain.LaborHistoryPoint, error) {
	if len(history) < 2 {
		return nil, ErrNotEnoughHistory
	}

	points := make([]domain.LaborHistoryPoint, len(history))
	for i, p := range history {
		if math.IsNaN(p.WorkersNeeded) || math.IsInf(p.WorkersNeeded, 0) || p.WorkersNeeded < 0 {
			return nil, fmt.Errorf("%s 的历史工人数无效", p.Date.Format(time.DateOnly))
		}
		points[i] = domain.LaborHistoryPoint{
			Date:          truncateToDay(p.Date),
			WorkersNeeded: p.WorkersNeeded,
		}
	}

	slices.SortFunc(points, func(a, b domain.LaborHistoryPoint) int {
		return a.Date.Compare(b.Date)
	})

	for i := 1; i < len(points); i++ {
		if points[i].Date.Equal(points[i-1].Date) {
			return nil, fmt.Errorf("历史数据中 %s 重复出现", points[i].Date.Format(time.DateOnly))
		}
	}

	return points, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) float64 {
	return math.Round(to.Sub(from).Hours() / 24)
}
