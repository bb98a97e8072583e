package domain

import (
	"time"
)

type Role string

const (
	RolePlanner Role = "规划员"
	RoleAdmin   Role = "管理员"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// UserWorkload 用户名下的数据量，停用账号前可以据此确认交接
type UserWorkload struct {
	UserID           int64 `json:"userID"`
	LaborHistories   int   `json:"laborHistories"`
	AllocationPlans  int   `json:"allocationPlans"`
	OvertimeRiskDays int   `json:"overtimeRiskDays"`
}
