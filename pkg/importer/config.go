package importer

import "github.com/pkg/errors"

type Config struct {
	Workers int `json:"workers" yaml:"workers"` // 每个阶段并发处理的条目数
}

func NewDefaultConfig() *Config {
	return &Config{Workers: 4}
}

func (c *Config) Validate() []error {
	var errs = make([]error, 0)
	if c.Workers < 0 {
		errs = append(errs, errors.Errorf("workers 不能为负数: %d", c.Workers))
	}
	if c.Workers > 32 {
		errs = append(errs, errors.Errorf("workers %d 过大，上游接口容易限流", c.Workers))
	}
	return errs
}

func (c *Config) workers() int {
	if c == nil || c.Workers <= 0 {
		return 1
	}
	return c.Workers
}
