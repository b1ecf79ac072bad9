package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songgift_backend/internal/config"
	"songgift_backend/pkg/logger"
)

// 全局参数
var (
	configPath string
	baseURL    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "songgift",
		Short:         "定制歌曲礼品店后端",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（可选）")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCleanupCmd(),
		newTrackCmd(),
		newWaitOrderCmd(),
	)
	return root
}

// loadConfig 读取配置并创建日志
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
