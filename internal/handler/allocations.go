package handler

import (
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/utils"
)

type forecastPeriodRequest struct {
	Date               string   `json:"date" validate:"required,datetime=2006-01-02"`
	WorkersNeeded      *float64 `json:"workersNeeded"` // 缺失时交给分配引擎报错，错误信息中会带上日期
	WorkersNeededUpper *float64 `json:"workersNeededUpper"`
	WorkersNeededLower *float64 `json:"workersNeededLower"`
}

type allocationResponse struct {
	Functions []string                  `json:"functions"`
	Ratios    map[string]float64        `json:"ratios"`
	Records   []domain.AllocationRecord `json:"records"`
	Summary   domain.PlanSummary        `json:"summary"`
}

func (h *Handler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Capacity *int                    `json:"capacity" validate:"required,min=0"`
		Ratios   map[string]float64      `json:"ratios"`
		Periods  []forecastPeriodRequest `json:"periods" validate:"required,dive"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	periods := make([]domain.ForecastPeriod, 0, len(req.Periods))
	for _, p := range req.Periods {
		date, err := utils.ParseDate(p.Date)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		periods = append(periods, domain.ForecastPeriod{
			Date:               date,
			WorkersNeeded:      p.WorkersNeeded,
			WorkersNeededUpper: p.WorkersNeededUpper,
			WorkersNeededLower: p.WorkersNeededLower,
		})
	}

	engine, err := h.engineFor(req.Ratios)
	if err != nil {
		h.allocationError(w, r, err)
		return
	}

	records, err := engine.Allocate(periods, *req.Capacity)
	if err != nil {
		h.allocationError(w, r, err)
		return
	}

	h.successResponse(w, r, "分配成功", allocationResponse{
		Functions: engine.Functions(),
		Ratios:    engine.Ratios(),
		Records:   records,
		Summary:   allocation.Summarize(records),
	})
}

// engineFor 请求中没有指定比例时复用全局的 engine，否则为这次请求单独创建一个
func (h *Handler) engineFor(ratios map[string]float64) (*allocation.Engine, error) {
	if len(ratios) == 0 {
		return h.engine, nil
	}
	return allocation.New(ratios)
}

// allocationError 分配引擎返回的错误都是输入错误，直接把原因告诉客户端
func (h *Handler) allocationError(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *allocation.ConfigurationError
	var validationErr *allocation.ValidationError

	switch {
	case errors.As(err, &cfgErr), errors.As(err, &validationErr), errors.Is(err, allocation.ErrNegativeCapacity):
		h.errorResponse(w, r, err.Error())
	default:
		h.internalServerError(w, r, err)
	}
}
