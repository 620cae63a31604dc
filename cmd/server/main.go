package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/couponstore/internal/app"
	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func main() {
	printStartupBanner()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	checkJWTSecret(cfg, stdLog)
	bootstrapDatabase(cfg, stdLog)
	ensureDefaultAdmin(cfg, stdLog)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// checkJWTSecret 弱密钥在开发环境提示，生产环境直接拒绝启动
func checkJWTSecret(cfg *config.Config, stdLog *log.Logger) {
	if !isWeakSecret(cfg.JWT.SecretKey) {
		return
	}
	if cfg.Server.Mode == "release" {
		stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
	}
	stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
}

func bootstrapDatabase(cfg *config.Config, stdLog *log.Logger) {
	pool := models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, pool); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}
}

func ensureDefaultAdmin(cfg *config.Config, stdLog *log.Logger) {
	email := os.Getenv("CS_DEFAULT_ADMIN_EMAIL")
	password := os.Getenv("CS_DEFAULT_ADMIN_PASSWORD")
	if cfg.Server.Mode == "release" && password == "" {
		stdLog.Printf("警告: 未设置 CS_DEFAULT_ADMIN_PASSWORD，已跳过默认管理员初始化")
		return
	}
	if err := models.InitDefaultAdmin(email, password); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + " ██████╗ ██████╗ ██╗   ██╗██████╗  ██████╗ ███╗   ██╗███████╗" + ansiReset)
	fmt.Println(ansiCyan + "██╔════╝██╔═══██╗██║   ██║██╔══██╗██╔═══██╗████╗  ██║██╔════╝" + ansiReset)
	fmt.Println(ansiCyan + "██║     ██║   ██║██║   ██║██████╔╝██║   ██║██╔██╗ ██║███████╗" + ansiReset)
	fmt.Println(ansiCyan + "██║     ██║   ██║██║   ██║██╔═══╝ ██║   ██║██║╚██╗██║╚════██║" + ansiReset)
	fmt.Println(ansiCyan + "╚██████╗╚██████╔╝╚██████╔╝██║     ╚██████╔╝██║ ╚████║███████║" + ansiReset)
	fmt.Println(ansiCyan + " ╚═════╝ ╚═════╝  ╚═════╝ ╚═╝      ╚═════╝ ╚═╝  ╚═══╝╚══════╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "CouponStore API" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
