package db

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	sqliteBusyTimeout = "5000" // 毫秒
)

type Config struct {
	Driver          string `json:"driver" yaml:"driver"` // mysql | postgres | sqlite
	Host            string `json:"host" yaml:"host"`
	Port            int    `json:"port" yaml:"port"`
	Username        string `json:"username" yaml:"username"`
	Password        string `json:"password" yaml:"password"`
	Database        string `json:"database" yaml:"database"` // sqlite 时为数据库文件路径
	MaxIdleConns    int    `json:"maxIdleConns,omitempty" yaml:"maxIdleConns,omitempty"`
	MaxOpenConns    int    `json:"maxOpenConns,omitempty" yaml:"maxOpenConns,omitempty"`
	ConnMaxLifetime int    `json:"connMaxLifetime,omitempty" yaml:"connMaxLifetime,omitempty"`
	Debug           bool   `json:"debug" yaml:"debug"`
	Schema          string `json:"schema" yaml:"schema"`
	AutoMigrate     bool   `json:"autoMigrate" yaml:"autoMigrate"`
}

func (t *Config) driver() string {
	d := strings.ToLower(strings.TrimSpace(t.Driver))
	if d == "" {
		return DriverMySQL
	}
	return d
}

func (t *Config) Validate() []error {
	var errs = make([]error, 0)
	switch t.driver() {
	case DriverMySQL, DriverPostgres:
		if t.Username == "" || t.Password == "" {
			errs = append(errs, errors.Errorf("连接的数据库用户名或密码为空"))
		}
	case DriverSQLite:
	default:
		errs = append(errs, errors.Errorf("不支持的数据库类型 %s", t.Driver))
	}
	if t.Database == "" {
		errs = append(errs, errors.Errorf("没有指定需要连接的数据库名称"))
	}
	return errs
}

func NewDefaultDBConfig() *Config {
	return &Config{
		Driver:          DriverMySQL,
		Host:            "127.0.0.1",
		Port:            3306,
		MaxIdleConns:    5,
		MaxOpenConns:    20,
		ConnMaxLifetime: 3600, // 1小时
		Schema:          "public",
	}
}

func (t *Config) DSN() string {
	switch t.driver() {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC search_path=%s",
			t.Host,
			t.Username,
			t.Password,
			t.Database,
			t.Port,
			t.Schema,
		)
	case DriverSQLite:
		if strings.Contains(t.Database, "?") {
			return t.Database + "&_busy_timeout=" + sqliteBusyTimeout
		}
		return t.Database + "?_busy_timeout=" + sqliteBusyTimeout
	default:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			t.Username,
			t.Password,
			t.Host,
			t.Port,
			t.Database,
		)
	}
}
