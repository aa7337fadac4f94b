package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectPostgres 连接到 PostgreSQL 数据库
// dsn: "host=localhost user=gorm password=gorm dbname=gorm port=9920 sslmode=disable"
func ConnectPostgres(dsn string, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info // 打印 SQL 语句方便调试
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 连接池配置
	sqlDB.SetMaxIdleConns(10)           // 空闲连接数
	sqlDB.SetMaxOpenConns(100)          // 最大连接数
	sqlDB.SetConnMaxLifetime(time.Hour) // 连接最大存活时间

	logger.Info("PostgreSQL 连接成功")
	return db, nil
}

// PostgresDSN 构造 gorm 使用的 key=value DSN
func PostgresDSN(c config.DBConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

// PostgresURL 构造 golang-migrate 使用的 URL 形式 DSN
func PostgresURL(c config.DBConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
