package db

import (
	"fmt"
	"net/url"

	"github.com/smallbiznis/outreach/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "outreach.db"

// Dialect returns the gorm dialector for DATABASE_TYPE. Every dialect stores
// timestamps in UTC.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case config.DBTypeMySQL:
		return mysql.Open(mysqlDSN(cfg)), nil
	case config.DBTypeSQLite:
		return sqlite.Open(sqliteFile(cfg)), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
}

func postgresDSN(cfg config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode)
}

func mysqlDSN(cfg config.Config) string {
	params := url.Values{}
	params.Set("charset", "utf8mb4")
	params.Set("parseTime", "true")
	params.Set("loc", "UTC")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, params.Encode())
}

// DATABASE_NAME defaults to "postgres", which is never a useful sqlite file.
func sqliteFile(cfg config.Config) string {
	if cfg.DBName == "" || cfg.DBName == "postgres" {
		return defaultSQLiteFile
	}
	return cfg.DBName
}
