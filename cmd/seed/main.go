package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/calendar-optimizer/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var userCount int
	var meetingCount int

	flag.IntVar(&userCount, "users", 0, "要插入的用户数量 (0 表示使用配置中的默认值)")
	flag.IntVar(&meetingCount, "meetings", 0, "每个用户要插入的会议数量 (0 表示使用配置中的默认值)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		logger.Warn("无法加载 .env 文件", "error", err)
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if userCount > 0 {
		cfg.Seed.UserCount = userCount
	}
	if meetingCount > 0 {
		cfg.Seed.MeetingCount = meetingCount
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

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	seed.Seed(cfg, repo)
}
