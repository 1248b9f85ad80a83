package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("记录不存在")

var instance *BadgerStore
var once sync.Once

// BadgerStore 本地 kv 存储，保存导入任务记录
type BadgerStore struct {
	store *badgerhold.Store
}

// Open 在 dir 下打开存储，dir 为空时使用 ./etc/data
func Open(dir string) (*BadgerStore, error) {
	if dir == "" {
		p, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(p, "etc", "data")
	}
	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, errors.Wrapf(err, "打开 badger 存储 %s 失败", dir)
	}
	return &BadgerStore{store: store}, nil
}

func (b *BadgerStore) Upsert(key string, value any) error {
	return b.store.Upsert(key, value)
}

func (b *BadgerStore) Get(key string, value any) error {
	err := b.store.Get(key, value)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (b *BadgerStore) Find(result any, query *badgerhold.Query) error {
	return b.store.Find(result, query)
}

func (b *BadgerStore) DeleteMatching(value any, query *badgerhold.Query) error {
	return b.store.DeleteMatching(value, query)
}

func (b *BadgerStore) Close() error {
	return b.store.Close()
}

// Init 打开全局存储，只生效一次
func Init(dir string) (*BadgerStore, error) {
	var err error
	once.Do(func() {
		instance, err = Open(dir)
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, errors.New("badger 存储初始化失败")
	}
	return instance, nil
}

func GetBadgerStore() *BadgerStore {
	return instance
}

func CloseBadgerStore() {
	if instance != nil {
		zap.S().Info("正在关闭 Badger 存储...")
		err := instance.Close()
		if err != nil {
			zap.S().Errorf("关闭 Badger 存储时发生错误: %v", err)
		} else {
			zap.S().Info("Badger 存储已成功关闭")
		}
		// 重置实例，避免重复关闭
		instance = nil
	}
}
