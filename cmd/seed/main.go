package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机用工历史, 3: 从 CSV 文件导入用工历史)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "", "导入用工历史的 CSV 文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	// 用工历史都记在初始管理员名下，因此需要先启动过一次 api
	creatorID := func() (int64, bool) {
		admin, err := repo.GetUserByUsername(cfg.InitialAdmin.Username)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				slog.Error("初始管理员不存在，请先启动 api 服务")
			default:
				slog.Error("无法获取初始管理员", slog.String("error", err.Error()))
			}
			return 0, false
		}
		return admin.ID, true
	}

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		cnt := seed.SeedRandomUsers(repo, n, cfg.Seed.User.Password, cfg.Email.UserDomain)
		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的用工历史数量")
			return
		}

		adminID, ok := creatorID()
		if !ok {
			return
		}

		cnt := seed.SeedRandomLaborHistories(repo, n, adminID)
		slog.Info("插入用工历史成功", slog.Int("count", cnt))
	case 3:
		if file == "" {
			slog.Error("请通过 -file 指定 CSV 文件")
			return
		}

		adminID, ok := creatorID()
		if !ok {
			return
		}

		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		history, err := seed.SeedLaborHistoryFromFile(repo, file, name, adminID)
		if err != nil {
			slog.Error("无法导入用工历史", slog.String("error", err.Error()))
			return
		}

		slog.Info("导入用工历史成功", slog.Int64("id", history.ID), slog.Int("points", len(history.Points)))
	default:
		slog.Error("指定的操作非法")
	}
}
