package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/utils"
)

func (h *Handler) CreateLaborHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string                     `json:"name" validate:"required"`
		Description string                     `json:"description"`
		Points      []laborHistoryPointRequest `json:"points" validate:"required,min=2,dive"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	points, err := parseHistoryPoints(req.Points)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.saveLaborHistory(w, r, &domain.LaborHistory{
		Name:        req.Name,
		Description: req.Description,
		Points:      points,
	})
}

// UploadLaborHistory 通过 multipart 表单上传 CSV，字段为 name、description 和 file
func (h *Handler) UploadLaborHistory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(h.config.Server.MaxUploadSize); err != nil {
		h.errorResponse(w, r, "无法解析上传的表单")
		return
	}

	name := r.FormValue("name")
	if err := h.validate.Var(name, "required"); err != nil {
		h.errorResponse(w, r, "名称不能为空")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.errorResponse(w, r, "请上传 CSV 文件")
		return
	}
	defer file.Close()

	points, err := utils.ParseLaborHistory(file)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.saveLaborHistory(w, r, &domain.LaborHistory{
		Name:        name,
		Description: r.FormValue("description"),
		Points:      points,
	})
}

func (h *Handler) saveLaborHistory(w http.ResponseWriter, r *http.Request, history *domain.LaborHistory) {
	if err := utils.ValidateLaborHistoryPoints(history.Points); err != nil {
		h.badRequest(w, r, err)
		return
	}

	userID, err := h.currentUserID(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	history.CreatedBy = userID

	if err := h.repository.CreateLaborHistory(history); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "labor_histories_name_key":
				h.errorResponse(w, r, "用工历史名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建用工历史成功", history)
}

func (h *Handler) GetAllLaborHistories(w http.ResponseWriter, r *http.Request) {
	histories, err := h.repository.GetAllLaborHistories()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有用工历史成功", histories)
}

func (h *Handler) GetLaborHistory(w http.ResponseWriter, r *http.Request) {
	history := r.Context().Value(LaborHistoryCtx).(*domain.LaborHistory)

	h.successResponse(w, r, "获取用工历史成功", history)
}

func (h *Handler) UpdateLaborHistory(w http.ResponseWriter, r *http.Request) {
	history := r.Context().Value(LaborHistoryCtx).(*domain.LaborHistory)
	if !h.requireOwnerOrAdmin(w, r, history.CreatedBy) {
		return
	}

	var req struct {
		Name        *string `json:"name" validate:"omitnil,min=1"`
		Description *string `json:"description"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		history.Name = *req.Name
	}
	if req.Description != nil {
		history.Description = *req.Description
	}

	if err := h.repository.UpdateLaborHistory(history); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "labor_histories_name_key":
				h.errorResponse(w, r, "用工历史名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新用工历史成功", history)
}

func (h *Handler) DeleteLaborHistory(w http.ResponseWriter, r *http.Request) {
	history := r.Context().Value(LaborHistoryCtx).(*domain.LaborHistory)
	if !h.requireOwnerOrAdmin(w, r, history.CreatedBy) {
		return
	}

	if err := h.repository.DeleteLaborHistory(history.ID); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "allocation_plans_labor_history_id_fkey":
				h.errorResponse(w, r, "该用工历史已被分配计划使用，无法删除")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除用工历史成功", nil)
}
