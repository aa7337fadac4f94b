package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Log *zap.Logger
)

func init() {
	// 默认初始化一个 Nop Logger，防止未 Init 就调用导致 panic
	Log = zap.NewNop()
}

// FileOptions 控制日志文件输出与滚动 (为空则只输出到 stdout)
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init initializes the global logger
func Init(env string, file ...FileOptions) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	Log, err = config.Build(zap.AddCallerSkip(1)) // Skip 1 caller so logs show where logger.Info was called, not wrapper
	if err != nil {
		panic(err)
	}

	if len(file) > 0 && file[0].Path != "" {
		Log = Log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, newFileCore(file[0], config.Level))
		}))
	}

	// 替换全局标准库 log (这样所有通过 log.Printf 打印的也会被重定向到 Zap)
	zap.ReplaceGlobals(Log)
	zap.RedirectStdLog(Log)
}

// newFileCore 文件日志固定使用 JSON 编码，便于采集
func newFileCore(opts FileOptions, level zap.AtomicLevel) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	if writer.MaxSize == 0 {
		writer.MaxSize = 100
	}

	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = Log.Sync()
}

// Named returns a child logger; used by long running workers to tag their output
func Named(name string) *zap.Logger {
	return Log.Named(name)
}

// Helper functions for direct usage
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}
