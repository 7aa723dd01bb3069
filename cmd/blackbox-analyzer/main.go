package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/config"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/logger"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/models"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/profile"
	"github.com/Ricardo-Marques/betaflight-tuning-helper-sub003/internal/service"

	"go.uber.org/zap"
)

// decodedLog 外部解码器产出的快照文件格式
type decodedLog struct {
	Metadata models.LogMetadata `json:"metadata"`
	Frames   []models.Frame     `json:"frames"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: blackbox-analyzer <decoded-log.json> [profile] [level]")
		os.Exit(2)
	}

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "blackbox-analyzer")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	analysisService, err := service.NewAnalysisService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create analysis service",
			zap.Error(err),
		)
	}
	defer analysisService.Stop()

	// 4. 读取解码后的日志快照
	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("Failed to read decoded log",
			zap.String("path", path),
			zap.Error(err),
		)
	}

	var decoded decodedLog
	if err := json.Unmarshal(data, &decoded); err != nil {
		log.Fatal("Failed to parse decoded log",
			zap.String("path", path),
			zap.Error(err),
		)
	}

	// 5. 组装分析选项（命令行覆盖配置默认）
	opts := service.AnalyzeOptions{
		LogID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}
	if len(os.Args) > 2 {
		opts.ProfileID = os.Args[2]
	}
	if len(os.Args) > 3 {
		opts.Level = profile.AnalysisLevel(os.Args[3])
	}

	// 6. 跑完整管线
	result, err := analysisService.AnalyzeLog(context.Background(), decoded.Frames, decoded.Metadata, opts)
	if err != nil {
		log.Fatal("Analysis failed",
			zap.String("log_id", opts.LogID),
			zap.Error(err),
		)
	}

	// 7. 输出结果 JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal("Failed to marshal result",
			zap.Error(err),
		)
	}
	fmt.Println(string(output))
}
