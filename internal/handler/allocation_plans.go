package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/utils"
)

/**
 * 创建分配计划分三步：
 * 1. 根据用工历史预测未来 horizon 天的用工需求
 * 2. 按比例把每天的需求分配到各个职能，并和可用人数比较
 * 3. 保存结果，存在加班风险时给创建者发送提醒邮件
 */
func (h *Handler) CreateAllocationPlan(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		Name           string             `json:"name" validate:"required"`
		LaborHistoryID int64              `json:"laborHistoryID" validate:"required,min=1"`
		Capacity       *int               `json:"capacity" validate:"required,min=0"`
		Horizon        int                `json:"horizon" validate:"omitempty,min=1"`
		Ratios         map[string]float64 `json:"ratios"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = h.config.Forecast.DefaultHorizon
	}
	if err := utils.ValidateForecastHorizon(horizon, h.config.Forecast.MaxHorizon); err != nil {
		h.badRequest(w, r, err)
		return
	}

	engine, err := h.engineFor(req.Ratios)
	if err != nil {
		h.allocationError(w, r, err)
		return
	}

	history, err := h.repository.GetLaborHistoryByID(req.LaborHistoryID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "用工历史不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	periods, err := h.forecastWithCache(r.Context(), history.Points, horizon)
	if err != nil {
		h.forecastError(w, r, err)
		return
	}

	records, err := engine.Allocate(periods, *req.Capacity)
	if err != nil {
		h.allocationError(w, r, err)
		return
	}

	summary := allocation.Summarize(records)
	plan := &domain.AllocationPlan{
		Name:           req.Name,
		LaborHistoryID: history.ID,
		Capacity:       *req.Capacity,
		Horizon:        horizon,
		Ratios:         engine.Ratios(),
		Periods:        periods,
		Records:        records,
		Summary:        &summary,
		CreatedBy:      myInfo.ID,
	}

	if err := h.repository.InsertAllocationPlan(plan); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "allocation_plans_name_key":
				h.errorResponse(w, r, "分配计划名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 计划已经保存成功，邮件发送失败不应该让整个请求失败
	if summary.OvertimeRiskDays > 0 {
		if err := h.publishMail(shortageAlertMail(myInfo, plan)); err != nil {
			slog.Warn("无法发送人手不足提醒", "planID", plan.ID, "error", err)
		}
	}

	h.successResponse(w, r, "创建分配计划成功", plan)
}

func shortageAlertMail(user *domain.User, plan *domain.AllocationPlan) domain.MailMessage {
	days := []domain.ShortageAlertDay{}
	for _, record := range plan.Records {
		if !record.OvertimeRisk {
			continue
		}
		days = append(days, domain.ShortageAlertDay{
			Date:          record.Date.Format("2006-01-02"),
			WorkersNeeded: record.WorkersNeeded,
			Shortage:      record.Shortage,
		})
	}

	return domain.MailMessage{
		Type: domain.MailTypeShortageAlert,
		To:   user.Email,
		Data: domain.ShortageAlertMailData{
			FullName:         user.FullName,
			PlanID:           plan.ID,
			PlanName:         plan.Name,
			WorkersAvailable: plan.Capacity,
			OvertimeRiskDays: plan.Summary.OvertimeRiskDays,
			TotalShortage:    plan.Summary.TotalShortage,
			Days:             days,
		},
	}
}

func (h *Handler) GetAllAllocationPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.repository.GetAllAllocationPlans()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有分配计划成功", plans)
}

func (h *Handler) GetAllocationPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(AllocationPlanCtx).(*domain.AllocationPlan)

	summary := allocation.Summarize(plan.Records)
	plan.Summary = &summary

	h.successResponse(w, r, "获取分配计划成功", plan)
}

// ExportAllocationPlan 以 CSV 的形式导出分配结果，列顺序与分配比例的职能名称排序一致
func (h *Handler) ExportAllocationPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(AllocationPlanCtx).(*domain.AllocationPlan)

	functions := slices.Sorted(maps.Keys(plan.Ratios))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="allocation-plan-%d.csv"`, plan.ID))
	if err := utils.WriteAllocationTable(w, functions, plan.Records); err != nil {
		// 此时响应头已经写出，只能记录日志
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) DeleteAllocationPlan(w http.ResponseWriter, r *http.Request) {
	plan := r.Context().Value(AllocationPlanCtx).(*domain.AllocationPlan)
	if !h.requireOwnerOrAdmin(w, r, plan.CreatedBy) {
		return
	}

	if err := h.repository.DeleteAllocationPlan(plan.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除分配计划成功", nil)
}
