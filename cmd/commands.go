package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songgift_backend/internal/client"
	"songgift_backend/internal/router"
	"songgift_backend/internal/task"
	"songgift_backend/pkg/database"
)

// ==================== serve ====================

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与定时任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}

			db, err := openDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := migrate(db); err != nil {
				return err
			}

			deps := initDependencies(cfg, log, db)
			if err := deps.Tasks.Start(); err != nil {
				return fmt.Errorf("启动定时任务失败: %w", err)
			}
			defer deps.Tasks.Stop()

			r := router.SetupRouter(deps.Controllers, router.Options{Logger: log, Limiter: deps.Limiter})
			return startServer(r, cfg.Server.Port, log)
		},
	}
}

// startServer 启动服务，收到退出信号后优雅关闭
func startServer(r *gin.Engine, port string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("服务启动失败: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务强制关闭: %w", err)
	}

	log.Info("服务已退出")
	return nil
}

// ==================== migrate / cleanup ====================

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据表",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := migrate(db); err != nil {
				return err
			}
			log.Info("数据表迁移完成")
			return nil
		},
	}
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "立即清理过期 intake 副本与结账记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)

			deps := initDependencies(cfg, log, db)
			res, err := deps.Tasks.TriggerCleanup(cmd.Context())
			if err != nil && !errors.Is(err, task.ErrTaskDisabled) {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

// ==================== track / wait-order ====================

func addBaseURLFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "店铺 API 地址")
}

func newTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track <tracking_id>",
		Short: "按追踪码查询订单",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := client.New(baseURL).TrackOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, order)
		},
	}
	addBaseURLFlag(cmd)
	return cmd
}

func newWaitOrderCmd() *cobra.Command {
	var (
		interval time.Duration
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "wait-order <stripe_session_id>",
		Short: "轮询支付结果直到订单生成",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(baseURL, client.WithPolling(interval, attempts))
			order, err := c.WaitForOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, order)
		},
	}
	addBaseURLFlag(cmd)
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "轮询间隔")
	cmd.Flags().IntVar(&attempts, "attempts", client.DefaultPollAttempts, "最大轮询次数")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
