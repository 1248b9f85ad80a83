package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"magento-importer/pkg/signals"
)

func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "立即执行一次导入",
		RunE: func(cmd *cobra.Command, args []string) error {
			imp, err := newImporter(cfg)
			if err != nil {
				return err
			}
			ctx := signals.SetupSignalHandler()
			result, err := imp.Run(ctx, func(percent int) {
				zap.S().Infof("导入进度 %d%%", percent)
			})
			if err != nil {
				zap.S().Errorf("导入失败: %v", err)
				return err
			}
			if result.Skipped {
				return nil
			}
			zap.S().Infof("分类: %s", result.Categories)
			zap.S().Infof("可配置商品: %s", result.Configurable)
			zap.S().Infof("简单商品: %s", result.Simple)
			return nil
		},
	}
}
