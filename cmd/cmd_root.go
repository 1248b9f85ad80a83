package cmd

import (
	stderrors "errors"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"magento-importer/pkg/catalog"
	"magento-importer/pkg/db"
	"magento-importer/pkg/importer"
	"magento-importer/pkg/magento"
	"magento-importer/pkg/server"
	"magento-importer/pkg/util"
)

const defaultConfigPath = "./etc/config/config.yaml"

var cfg *server.Config

func NewRootCommand() *cobra.Command {
	var configFilePath string
	cmd := &cobra.Command{
		Use:     util.AppName,
		Short:   "Magento 商品目录导入",
		Version: util.GetVersion().Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFilePath == "" {
				configFilePath = defaultConfigPath
			}
			var err error
			cfg, err = server.TryLoadFromDisk(configFilePath)
			if err != nil {
				return errors.Errorf("读取本地配置文件错误:%s", err.Error())
			}
			if errs := cfg.Validate(); len(errs) > 0 {
				return errors.Errorf("本地配置文件验证错误:%s", stderrors.Join(errs...))
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "配置文件路径")
	cmd.AddCommand(NewServerCommand(), NewImportCommand())
	return cmd
}

// newImporter 连接目录库并组装导入器
func newImporter(cfg *server.Config) (*importer.Importer, error) {
	if err := db.InitDB(cfg.DB); err != nil {
		return nil, errors.Errorf("无法连接数据库。%s", err.Error())
	}
	store := catalog.NewGormStore(db.GetDB())
	client := magento.NewClient(cfg.Magento)
	return importer.New(cfg.Import, client, store), nil
}
