package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Audit timestamps are written and filtered in UTC regardless of the server zone.
var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"parseTime": "True",
	"loc":       "UTC",
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig())
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if err := requireCredentials("mysql", cfg); err != nil {
		return "", err
	}

	user := cfg.User
	if cfg.Password != "" {
		user += ":" + cfg.Password
	}
	host := orDefault(cfg.Host, "127.0.0.1")
	port := orDefaultPort(cfg.Port, 3306)

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		user, host, port, cfg.Name, strings.Join(dsnOptions(mysqlDefaults, cfg.Options), "&")), nil
}
