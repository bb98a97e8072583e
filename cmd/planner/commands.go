package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/forecast"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/utils"
)

// 与 api 的 FORECAST_DEFAULT_HORIZON 和 FORECAST_MAX_HORIZON 默认值一致
const (
	defaultHorizon       = 14
	maxHorizon           = 30
	defaultIntervalWidth = 0.8
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planner",
		Short: "离线的用工预测与分配工具",
		Long: `不依赖数据库和消息队列，直接读写 CSV 文件：
  forecast  根据用工历史预测未来的用工需求
  allocate  把预测的用工需求按比例分配到各个职能
  plan      依次执行 forecast 和 allocate`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newForecastCommand(), newAllocateCommand(), newPlanCommand())
	return cmd
}

func newForecastCommand() *cobra.Command {
	var (
		historyPath   string
		horizon       int
		intervalWidth float64
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "根据用工历史预测未来的用工需求，结果以 CSV 输出",
		RunE: func(cmd *cobra.Command, args []string) error {
			periods, err := forecastFromFile(historyPath, horizon, intervalWidth)
			if err != nil {
				return err
			}
			return utils.WriteForecastTable(cmd.OutOrStdout(), periods)
		},
	}

	cmd.Flags().StringVar(&historyPath, "history", "", "用工历史 CSV 文件，列为 date,workers_needed")
	cmd.Flags().IntVar(&horizon, "horizon", defaultHorizon, "预测天数")
	cmd.Flags().Float64Var(&intervalWidth, "interval-width", defaultIntervalWidth, "置信区间宽度，取值 (0, 1)")
	_ = cmd.MarkFlagRequired("history")

	return cmd
}

func newAllocateCommand() *cobra.Command {
	var (
		forecastPath string
		capacity     int
		ratios       map[string]string
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "把预测的用工需求按比例分配到各个职能，结果以 CSV 输出",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(forecastPath)
			if err != nil {
				return err
			}
			defer file.Close()

			periods, err := utils.ParseForecastPeriods(file)
			if err != nil {
				return err
			}

			return allocateAndWrite(cmd, periods, capacity, ratios)
		},
	}

	cmd.Flags().StringVar(&forecastPath, "forecast", "", "预测结果 CSV 文件，列为 date,workers_needed[,workers_needed_upper,workers_needed_lower]")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "每天可用的人数")
	cmd.Flags().StringToStringVar(&ratios, "ratio", nil, "职能的分配比例，例如 --ratio picking=0.5，不指定时使用默认比例")
	_ = cmd.MarkFlagRequired("forecast")
	_ = cmd.MarkFlagRequired("capacity")

	return cmd
}

func newPlanCommand() *cobra.Command {
	var (
		historyPath   string
		horizon       int
		intervalWidth float64
		capacity      int
		ratios        map[string]string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "根据用工历史预测并分配，结果以 CSV 输出，汇总输出到 stderr",
		RunE: func(cmd *cobra.Command, args []string) error {
			periods, err := forecastFromFile(historyPath, horizon, intervalWidth)
			if err != nil {
				return err
			}

			return allocateAndWrite(cmd, periods, capacity, ratios)
		},
	}

	cmd.Flags().StringVar(&historyPath, "history", "", "用工历史 CSV 文件，列为 date,workers_needed")
	cmd.Flags().IntVar(&horizon, "horizon", defaultHorizon, "预测天数")
	cmd.Flags().Float64Var(&intervalWidth, "interval-width", defaultIntervalWidth, "置信区间宽度，取值 (0, 1)")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "每天可用的人数")
	cmd.Flags().StringToStringVar(&ratios, "ratio", nil, "职能的分配比例，例如 --ratio picking=0.5，不指定时使用默认比例")
	_ = cmd.MarkFlagRequired("history")
	_ = cmd.MarkFlagRequired("capacity")

	return cmd
}

func forecastFromFile(path string, horizon int, intervalWidth float64) ([]domain.ForecastPeriod, error) {
	if err := utils.ValidateForecastHorizon(horizon, maxHorizon); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	history, err := utils.ParseLaborHistory(file)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateLaborHistoryPoints(history); err != nil {
		return nil, err
	}

	forecaster, err := forecast.New(intervalWidth)
	if err != nil {
		return nil, err
	}

	return forecaster.Forecast(history, horizon)
}

func allocateAndWrite(cmd *cobra.Command, periods []domain.ForecastPeriod, capacity int, rawRatios map[string]string) error {
	ratios, err := parseRatios(rawRatios)
	if err != nil {
		return err
	}

	engine, err := allocation.New(ratios)
	if err != nil {
		return err
	}

	records, err := engine.Allocate(periods, capacity)
	if err != nil {
		return err
	}

	if err := utils.WriteAllocationTable(cmd.OutOrStdout(), engine.Functions(), records); err != nil {
		return err
	}

	writeSummary(cmd.ErrOrStderr(), allocation.Summarize(records))
	return nil
}

// parseRatios 把 --ratio 的字符串值转换为数字，没有指定时返回 nil 以使用默认比例
func parseRatios(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	ratios := make(map[string]float64, len(raw))
	for function, value := range raw {
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("职能 %s 的分配比例 %q 不是数字", function, value)
		}
		ratios[function] = ratio
	}

	return ratios, nil
}

func writeSummary(w io.Writer, summary domain.PlanSummary) {
	fmt.Fprintf(w, "平均需求: %.1f 人\n", summary.AvgWorkersNeeded)
	fmt.Fprintf(w, "峰值需求: %.1f 人\n", summary.PeakWorkersNeeded)
	fmt.Fprintf(w, "加班风险天数: %d\n", summary.OvertimeRiskDays)
	fmt.Fprintf(w, "总缺口: %d 人\n", summary.TotalShortage)
}
