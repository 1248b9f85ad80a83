package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"magento-importer/pkg/db"
	"magento-importer/pkg/importer"
	"magento-importer/pkg/job"
	"magento-importer/pkg/magento"
	"magento-importer/pkg/nsc"
	"magento-importer/pkg/util"
)

type Config struct {
	ClientName string              `json:"client_name" yaml:"client_name"`
	Port       int                 `json:"port,omitempty" yaml:"port,omitempty"`
	DataDir    string              `json:"data_dir,omitempty" yaml:"data_dir,omitempty"` // 任务记录目录，为空时使用 ./etc/data
	DB         *db.Config          `json:"db,omitempty" yaml:"db,omitempty"`
	Magento    *magento.Config     `json:"magento,omitempty" yaml:"magento,omitempty"`
	Import     *importer.Config    `json:"import,omitempty" yaml:"import,omitempty"`
	Job        *job.Config         `json:"job,omitempty" yaml:"job,omitempty"`
	Schedule   *job.ScheduleConfig `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Nats       *nsc.NatsConfig     `json:"nats,omitempty" yaml:"nats,omitempty"`
}

func (g *Config) Validate() []error {
	var errs = make([]error, 0)
	if err := util.IsValidPort(g.Port); err != nil {
		errs = append(errs, err)
	}
	if g.DB == nil {
		errs = append(errs, errors.New("缺少 db 配置"))
	} else {
		errs = append(errs, g.DB.Validate()...)
	}
	if g.Magento == nil {
		errs = append(errs, errors.New("缺少 magento 配置"))
	} else {
		errs = append(errs, g.Magento.Validate()...)
	}
	if g.Import != nil {
		errs = append(errs, g.Import.Validate()...)
	}
	if g.Job != nil {
		errs = append(errs, g.Job.Validate()...)
	}
	if g.Schedule != nil {
		errs = append(errs, g.Schedule.Validate()...)
	}
	if g.Nats != nil {
		errs = append(errs, g.Nats.Validate()...)
	}
	return errs
}

func NewDefaultConfig() *Config {
	return &Config{
		ClientName: util.AppName,
		Port:       3000,
		DB:         db.NewDefaultDBConfig(),
		Magento:    magento.NewDefaultConfig(),
		Import:     importer.NewDefaultConfig(),
		Job:        job.NewDefaultConfig(),
		Schedule:   &job.ScheduleConfig{},
		Nats:       nsc.NewDefaultNatsConfig(),
	}
}

// TryLoadFromDisk 按文件扩展名选择解析格式和结构体标签，环境变量可覆盖配置项（. 替换为 _）
func TryLoadFromDisk(configFilePath string) (*Config, error) {
	_, err := os.Stat(configFilePath)
	if err != nil {
		return nil, err
	}
	dir, file := filepath.Split(configFilePath)
	fileType := filepath.Ext(file)
	viper.Reset()
	viper.AddConfigPath(dir)
	viper.SetConfigName(strings.TrimSuffix(file, fileType))
	viper.SetConfigType(strings.TrimPrefix(fileType, "."))
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "读取配置文件 %s 失败", configFilePath)
	}
	cfg := NewDefaultConfig()
	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = strings.TrimPrefix(fileType, ".")
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}
