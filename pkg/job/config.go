package job

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

type Config struct {
	MaxAttempts   int `json:"maxAttempts" yaml:"maxAttempts"`     // 失败后最多执行几次，1 表示不重试
	QueueSize     int `json:"queueSize" yaml:"queueSize"`         // 排队中的任务上限
	RetentionDays int `json:"retentionDays" yaml:"retentionDays"` // 任务记录保留天数，0 表示不清理
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxAttempts:   1,
		QueueSize:     16,
		RetentionDays: 30,
	}
}

func (c *Config) Validate() []error {
	var errs = make([]error, 0)
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.Errorf("maxAttempts 至少为 1: %d", c.MaxAttempts))
	}
	if c.QueueSize < 1 {
		errs = append(errs, errors.Errorf("queueSize 至少为 1: %d", c.QueueSize))
	}
	if c.RetentionDays < 0 {
		errs = append(errs, errors.Errorf("retentionDays 不能为负数: %d", c.RetentionDays))
	}
	return errs
}

// ScheduleConfig 定时触发配置
type ScheduleConfig struct {
	RunOnStart bool   `json:"runOnStart" yaml:"runOnStart"` // 启动后立即导入一次
	Cron       string `json:"cron" yaml:"cron"`             // 5 位或 6 位 cron 表达式，为空表示不定时
}

func (c *ScheduleConfig) Validate() []error {
	var errs = make([]error, 0)
	if strings.TrimSpace(c.Cron) == "" {
		return errs
	}
	if _, err := parseCron(c.Cron); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// parseCron 6 位表达式包含秒
func parseCron(expr string) (*cron.Cron, error) {
	expr = strings.TrimSpace(expr)
	var c *cron.Cron
	switch len(strings.Fields(expr)) {
	case 6:
		c = cron.New(cron.WithSeconds())
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(expr); err != nil {
			return nil, errors.Wrapf(err, "解析 CRON 表达式失败: %s", expr)
		}
	case 5:
		c = cron.New()
		if _, err := cron.ParseStandard(expr); err != nil {
			return nil, errors.Wrapf(err, "解析 CRON 表达式失败: %s", expr)
		}
	default:
		return nil, errors.Errorf("无效的 cron 表达式格式，应为5位或6位: %s", expr)
	}
	return c, nil
}
