/*
 * @Author: NEFU AB-IN
 * @Date: 2026-10-02 13:26:40
 * @FilePath: \shift-handover-log\backend\internal\infra\client\mysql_client.go
 * @LastEditTime: 2026-10-05 09:18:57
 */
package client

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shift-handover-log/backend/internal/config"

	mysqlcfg "github.com/go-sql-driver/mysql"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	defaultMySQLPort     = 3306
	defaultMySQLDatabase = "shift_handover"
)

// MySQLConfig 描述在线模式下的数据库连接配置。
type MySQLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// LoadMySQLConfigFromEnv 读取 MYSQL_HOST/MYSQL_PORT/MYSQL_USER/MYSQL_PASSWORD/MYSQL_DATABASE。
func LoadMySQLConfigFromEnv() (MySQLConfig, error) {
	config.LoadEnvFiles()

	cfg := MySQLConfig{
		Host:     strings.TrimSpace(os.Getenv("MYSQL_HOST")),
		Port:     defaultMySQLPort,
		Username: strings.TrimSpace(os.Getenv("MYSQL_USER")),
		Password: os.Getenv("MYSQL_PASSWORD"),
		Database: strings.TrimSpace(os.Getenv("MYSQL_DATABASE")),
	}
	if raw := strings.TrimSpace(os.Getenv("MYSQL_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 {
			return MySQLConfig{}, fmt.Errorf("invalid MYSQL_PORT %q", raw)
		}
		cfg.Port = port
	}
	if cfg.Database == "" {
		cfg.Database = defaultMySQLDatabase
	}
	return cfg, validateMySQLConfig(cfg)
}

// NewGORMMySQL 创建 GORM 连接并返回 ORM，连接池参数与 ping 校验在这里统一处理。
func NewGORMMySQL(cfg MySQLConfig) (*gorm.DB, error) {
	dsn, err := BuildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(mysqlDriver.Open(dsn), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("open gorm mysql: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return gormDB, nil
}

// validateMySQLConfig 校验配置字段是否完整。
func validateMySQLConfig(cfg MySQLConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if cfg.Username == "" {
		return fmt.Errorf("mysql username is required")
	}
	if cfg.Database == "" {
		return fmt.Errorf("mysql database is required")
	}
	return nil
}

// BuildMySQLDSN 在通过校验后拼接 MySQL DSN，时间统一按 UTC 读写。
func BuildMySQLDSN(cfg MySQLConfig) (string, error) {
	if err := validateMySQLConfig(cfg); err != nil {
		return "", err
	}
	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	dsn := mysqlcfg.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	// 按匹配行数返回 RowsAffected，值未变化的 UPDATE 也能判定记录存在。
	dsn.ClientFoundRows = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN(), nil
}
