package main

import (
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"magento-importer/cmd"
	"magento-importer/pkg/util"
)

func main() {
	// .env 可选
	_ = godotenv.Load()

	logger := util.InitZapLog()
	zap.ReplaceGlobals(logger)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
