package main

import (
	"errors"
	"flag"

	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/config"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/database"
	"github.com/koyahness/Proof-of-Attendance-POA-mini-app/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	var command, dir string
	var version int
	flag.StringVar(&command, "cmd", "up", "Command to run: up, down, force, version")
	flag.StringVar(&dir, "dir", "migrations", "Migration files directory")
	flag.IntVar(&version, "v", -1, "Version for force command")
	flag.Parse()

	// 加载配置
	config.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	m, err := migrate.New("file://"+dir, database.PostgresURL(config.Global.DB))
	if err != nil {
		logger.Fatal("Migration init failed", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Migration up failed", zap.Error(err))
		}
		logger.Info("Migration up done")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Migration down failed", zap.Error(err))
		}
		logger.Info("Migration down done")
	case "force":
		if version == -1 {
			logger.Fatal("Version (-v) is required for force command")
		}
		if err := m.Force(version); err != nil {
			logger.Fatal("Migration force failed", zap.Error(err))
		}
		logger.Info("Migration forced", zap.Int("version", version))
	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logger.Fatal("Read version failed", zap.Error(err))
		}
		logger.Info("Current version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	default:
		logger.Fatal("Unknown command", zap.String("cmd", command))
	}
}
