package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/utils"
)

// 随机用工历史的天数，足够让预测用上按星期的季节性
const randomHistoryDays = 56

// SeedRandomUsers 插入 n 个随机用户，返回成功插入的数量
func SeedRandomUsers(r *repository.Repository, n int, password string, emailDomain string) int {
	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			slog.Error("无法生成随机用户", "error", err)
			continue
		}

		// 拼音用户名可能重复，重复的邮箱直接跳过
		exists, err := r.CheckEmailIfExists(user.Email)
		if err != nil {
			slog.Error("无法检查邮箱是否存在", "error", err)
			continue
		}
		if exists {
			slog.Warn("邮箱已存在，跳过", "email", user.Email)
			continue
		}

		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入用户", "error", err)
			continue
		}

		cnt++
	}

	return cnt
}

/**
 * 插入 n 段随机的用工历史，每段都从 randomHistoryDays 天前开始，
 * 基准人数在 [30, 80) 之间，每天的趋势在 [-0.2, 0.5) 之间
 */
func SeedRandomLaborHistories(r *repository.Repository, n int, createdBy int64) int {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -randomHistoryDays)

	cnt := 0
	for i := 0; i < n; i++ {
		base := 30 + rand.Float64()*50
		trend := -0.2 + rand.Float64()*0.7

		history := utils.GenerateRandomLaborHistoryMeta()
		history.Points = utils.GenerateRandomLaborHistory(start, randomHistoryDays, base, trend)
		history.CreatedBy = createdBy

		if err := r.CreateLaborHistory(history); err != nil {
			slog.Error("无法插入用工历史", "error", err)
			continue
		}

		cnt++
	}

	return cnt
}

// SeedLaborHistoryFromFile 从 date,workers_needed 格式的 CSV 文件导入真实的用工历史
func SeedLaborHistoryFromFile(r *repository.Repository, path string, name string, createdBy int64) (*domain.LaborHistory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	points, err := utils.ParseLaborHistory(file)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateLaborHistoryPoints(points); err != nil {
		return nil, err
	}

	history := &domain.LaborHistory{
		Name:        name,
		Description: fmt.Sprintf("从 %s 导入", path),
		Points:      points,
		CreatedBy:   createdBy,
	}
	if err := r.CreateLaborHistory(history); err != nil {
		return nil, err
	}

	return history, nil
}
