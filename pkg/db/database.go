package db

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"magento-importer/pkg/models"
)

var gormCatalogDB *gorm.DB
var databaseOnce sync.Once

func dialector(cfg *Config) gorm.Dialector {
	switch cfg.driver() {
	case DriverPostgres:
		return postgres.Open(cfg.DSN())
	case DriverSQLite:
		return sqlite.Open(cfg.DSN())
	default:
		return mysql.New(mysql.Config{DSN: cfg.DSN()})
	}
}

// Open 按配置打开目标目录库，唯一约束冲突会被翻译成 gorm.ErrDuplicatedKey
func Open(cfg *Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector(cfg), &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "连接 %s 数据库失败", cfg.driver())
	}
	if cfg.Debug {
		gdb = gdb.Debug()
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.driver() == DriverSQLite {
		// sqlite 同一时刻只允许一个写事务，并发的导入 worker 在连接池上排队
		sqlDB.SetMaxOpenConns(1)
	}
	if cfg.AutoMigrate {
		if err = gdb.AutoMigrate(models.CatalogTables()...); err != nil {
			return nil, errors.Wrap(err, "自动迁移目录表失败")
		}
	}
	return gdb, nil
}

// InitDB 初始化全局目录库连接，只执行一次
func InitDB(cfg *Config) error {
	var err error
	databaseOnce.Do(func() {
		gormCatalogDB, err = Open(cfg)
		if err != nil {
			return
		}
		zap.S().Debugf("*** 数据库初始化完成 (%s) ***", cfg.driver())
	})
	return err
}

func GetDB() *gorm.DB {
	return gormCatalogDB
}
