package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"magento-importer/pkg/job"
	"magento-importer/pkg/nsc"
)

// Listener 订阅 nats 上的导入触发消息
type Listener struct {
	cfg  *nsc.NatsConfig
	jobs JobService
}

func NewListener(cfg *nsc.NatsConfig, jobs JobService) *Listener {
	return &Listener{cfg: cfg, jobs: jobs}
}

func (l *Listener) Serve(ctx context.Context, conn *nats.Conn) error {
	js, err := jetstream.New(conn)
	if err != nil {
		return err
	}
	if err = l.streamMustReady(ctx, js); err != nil {
		return fmt.Errorf("nats stream not ready [%s]", err.Error())
	}
	var consumerName = l.cfg.ConsumerName
	//调试环境用临时 consumer，避免和线上共用消费进度
	if debug, _ := strconv.ParseBool(os.Getenv("DEBUG")); debug {
		consumerName = "temp_consumer"
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, l.cfg.StreamName, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		FilterSubject: l.cfg.SubjectName,
	})
	if err != nil {
		return err
	}
	if consumer == nil {
		return fmt.Errorf("consumer create error")
	}
	zap.S().Infof("开始监听导入触发消息 %s", l.cfg.SubjectName)

	group, c := errgroup.WithContext(ctx)
	group.Go(func() error {
		for {
			select {
			case <-c.Done():
				return nil
			default:
				messages, err := consumer.Fetch(1, jetstream.FetchMaxWait(1*time.Second))
				if err != nil {
					zap.S().Debugf("拉取消息失败: %v", err)
					select {
					case <-c.Done():
					case <-time.After(time.Second):
					}
					continue
				}
				for msg := range messages.Messages() {
					zap.S().Debugf("msg: %s", string(msg.Data()))
					if err := l.handleOneMsg(c, msg.Data()); err != nil {
						zap.S().Errorf("处理导入触发消息失败: %v", err)
					}
					if err := msg.Ack(); err != nil {
						return err
					}
				}
			}
		}
	})
	return group.Wait()
}

// streamMustReady 确认 stream 存在，已存在时把主题追加进去
func (l *Listener) streamMustReady(ctx context.Context, js jetstream.JetStream) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	stream, err := js.Stream(ctx, l.cfg.StreamName)
	zap.S().Infof("*** check stream %s. ***", l.cfg.StreamName)
	if err != nil && !errors.Is(err, jetstream.ErrStreamNotFound) {
		return err
	}
	var subjects = []string{l.cfg.SubjectName}
	if err == nil {
		si, err := stream.Info(ctx)
		if err != nil {
			return err
		}
		subjects = lo.Uniq(append(subjects, si.Config.Subjects...))
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     l.cfg.StreamName,
		Subjects: subjects,
	})
	return err
}

// handleOneMsg 只处理 operate=import，其他消息忽略
func (l *Listener) handleOneMsg(ctx context.Context, data []byte) error {
	var msg TriggerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errors.Wrap(err, "JSON解析失败")
	}
	if msg.Operate != OperateImport {
		zap.S().Debugf("忽略未知操作 %q", msg.Operate)
		return nil
	}
	j, err := l.jobs.Enqueue(ctx, job.TriggerNATS)
	if err != nil {
		return err
	}
	zap.S().Infof("收到导入触发消息，任务 %s 已入队", j.ID)
	return nil
}
