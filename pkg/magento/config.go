package magento

import (
	"strings"

	"github.com/pkg/errors"
)

type Config struct {
	URL               string `json:"url" yaml:"url"`
	ConsumerKey       string `json:"consumerKey" yaml:"consumerKey"`
	ConsumerSecret    string `json:"consumerSecret" yaml:"consumerSecret"`
	AccessToken       string `json:"accessToken" yaml:"accessToken"`
	AccessTokenSecret string `json:"accessTokenSecret" yaml:"accessTokenSecret"`
	ImagePrefix       string `json:"imagePrefix,omitempty" yaml:"imagePrefix,omitempty"` // 为空时从 storeConfigs 探测
	PageSize          int    `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Timeout           int    `json:"timeout,omitempty" yaml:"timeout,omitempty"` // 秒
	StoreCode         string `json:"storeCode,omitempty" yaml:"storeCode,omitempty"`
}

func NewDefaultConfig() *Config {
	return &Config{
		PageSize:  100,
		Timeout:   30,
		StoreCode: "default",
	}
}

func (c *Config) Validate() []error {
	var errs = make([]error, 0)
	if c.URL == "" {
		errs = append(errs, errors.New("没有配置 magento 地址"))
	} else if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs = append(errs, errors.Errorf("magento 地址 %s 缺少 http(s) 协议头", c.URL))
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		errs = append(errs, errors.New("magento consumer key/secret 为空"))
	}
	if c.AccessToken == "" || c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("magento access token/secret 为空"))
	}
	if c.PageSize < 0 {
		errs = append(errs, errors.Errorf("pageSize 不能为负数: %d", c.PageSize))
	}
	return errs
}

// BaseURL REST 接口前缀
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.URL, "/") + "/rest/default/V1"
}
