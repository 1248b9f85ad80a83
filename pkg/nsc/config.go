package nsc

import (
	"fmt"
)

type NatsAccount struct {
	UserName string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	NKey     string `json:"nkey" yaml:"nkey"`
	Seed     string `json:"seed" yaml:"seed"`
}

// NatsConfig 导入触发消息所在的 nats 配置，Enabled 为 false 时不连接
type NatsConfig struct {
	Enabled            bool                    `json:"enabled" yaml:"enabled"`
	Endpoint           string                  `json:"endpoint" yaml:"endpoint"`
	Account            map[string]*NatsAccount `json:"account" yaml:"account"`
	DefaultAccountName string                  `json:"defaultAccountName" yaml:"defaultAccountName"`
	StreamName         string                  `json:"streamName" yaml:"streamName"`
	ConsumerName       string                  `json:"consumerName" yaml:"consumerName"`
	SubjectName        string                  `json:"subjectName" yaml:"subjectName"`
}

func (n *NatsConfig) Validate() []error {
	var errs = make([]error, 0)
	if !n.Enabled {
		return errs
	}
	if len(n.Account) == 0 {
		errs = append(errs, fmt.Errorf("尚未定义账号"))
	} else if _, err := n.GetDefaultAccount(); err != nil {
		errs = append(errs, err)
	}
	if len(n.StreamName) == 0 {
		errs = append(errs, fmt.Errorf("尚未定义 stream"))
	}
	if len(n.ConsumerName) == 0 {
		errs = append(errs, fmt.Errorf("尚未定义消费者"))
	}
	if len(n.SubjectName) == 0 {
		errs = append(errs, fmt.Errorf("尚未定义主题"))
	}
	return errs
}

func NewDefaultNatsConfig() *NatsConfig {
	return &NatsConfig{
		Endpoint:           "nats://127.0.0.1:4222",
		DefaultAccountName: "",
		Account:            make(map[string]*NatsAccount),
		StreamName:         "MAGENTO_IMPORT",
		ConsumerName:       "magento-importer",
		SubjectName:        "magento.import",
	}
}

func (n *NatsConfig) GetDefaultAccount() (*NatsAccount, error) {
	if n.DefaultAccountName == "" {
		return nil, fmt.Errorf("没有定义默认账号")
	}
	if a, ok := n.Account[n.DefaultAccountName]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("无法找到 %s 账号定义", n.DefaultAccountName)
}
