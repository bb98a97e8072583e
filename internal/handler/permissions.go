package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
)

// canModify 管理员可以修改任何数据，规划员只能修改自己创建的用工历史和分配计划
func canModify(role domain.Role, userID int64, ownerID int64) bool {
	return role == domain.RoleAdmin || userID == ownerID
}

// requireOwnerOrAdmin 没有权限时直接写出错误响应并返回 false
func (h *Handler) requireOwnerOrAdmin(w http.ResponseWriter, r *http.Request, ownerID int64) bool {
	role, _ := r.Context().Value(RoleCtxKey).(string)

	userID, err := h.currentUserID(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return false
	}

	if !canModify(domain.Role(role), userID, ownerID) {
		h.errorResponse(w, r, "只有创建者或管理员可以执行此操作")
		return false
	}

	return true
}
