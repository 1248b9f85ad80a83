package nsc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"go.uber.org/zap"

	"magento-importer/pkg/util"
)

var (
	singleton *NatsClient
	once      sync.Once
)

type NatsClient struct {
	clientName string
	cfg        *NatsConfig
	nc         *nats.Conn
}

func InitNats(clientName string, config *NatsConfig) error {
	zap.S().Info("***初始化NATS")
	var hasError error
	once.Do(func() {
		client := &NatsClient{
			clientName: clientName,
			cfg:        config,
		}
		defaultAccount, err := config.GetDefaultAccount()
		if err != nil {
			hasError = err
			return
		}
		if err := client.Connect(defaultAccount); err != nil {
			hasError = err
			return
		}
		singleton = client
	})
	return hasError
}

// signer 用账号 seed 对服务端下发的 nonce 签名
func signer(seed string) nats.SignatureHandler {
	return func(nonce []byte) ([]byte, error) {
		sk, err := nkeys.FromSeed(util.StringToBytes(seed))
		if err != nil {
			return nil, err
		}
		return sk.Sign(nonce)
	}
}

func (c *NatsClient) Connect(account *NatsAccount) error {
	if c.nc != nil {
		return nil
	}
	opt := nats.GetDefaultOptions()
	opt.Name = fmt.Sprintf("%s %s %s", util.GetVersion().AppName, util.GetVersion().Version, c.clientName)
	opt.User = account.UserName
	opt.Password = account.Password
	opt.Url = c.cfg.Endpoint
	if account.NKey != "" {
		opt.Nkey = account.NKey
		opt.SignatureCB = signer(account.Seed)
	}
	opt.NoCallbacksAfterClientClose = true
	opt.ReconnectWait = 2 * time.Second //重试等待2s
	opt.MaxReconnect = -1               //永远重试
	opt.AllowReconnect = true
	opt.ReconnectJitter = 500 * time.Millisecond
	opt.DisconnectedErrCB = func(conn *nats.Conn, err error) {
		if err != nil {
			zap.S().Debugf("*** 断开连接...%s ***", err.Error())
		}
	}
	opt.ReconnectedCB = func(conn *nats.Conn) {
		zap.S().Debugf("*** 已重连 ***")
	}
	opt.ConnectedCB = func(conn *nats.Conn) {
		zap.S().Debugf("*** NATS 已连接 ***")
	}

	nc, err := opt.Connect()
	if err != nil {
		return err
	}
	nc.SetErrorHandler(func(conn *nats.Conn, sub *nats.Subscription, natsErr error) {
		if errors.Is(natsErr, nats.ErrSlowConsumer) && sub != nil {
			if pms, _, pmsErr := sub.Pending(); pmsErr == nil {
				zap.S().Errorf("Falling behind with %d pending messages on subject %q.", pms, sub.Subject)
				return
			}
		}
		zap.S().Errorf("Nats 捕获错误: %v", natsErr)
	})
	c.nc = nc
	return nil
}

func (c *NatsClient) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
		c.nc.Close()
		zap.S().Debugf("*** NATS 已经关闭 ***")
	}
}

// GetNatsClient 未初始化时返回 nil
func GetNatsClient() *NatsClient {
	return singleton
}

func (c *NatsClient) GetNatsConn() *nats.Conn {
	return c.nc
}
