package log

import (
	"os"
	"path/filepath"

	"github.com/ListenOcean/goProxyTool/configs"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level = zapcore.Level

const (
	InfoLevel  = zap.InfoLevel  // 0, default level
	DebugLevel = zap.DebugLevel // -1
)

const (
	DebugMode   = "Debug"
	ReleaseMode = "Release"
	// ConsoleMode logs info to the console and keeps no file.
	ConsoleMode = "Console"
)

type Field = zap.Field

// function variables for the field types in use
// in github.com/uber-go/zap/field.go

var (
	Int    = zap.Int
	String = zap.String

	Info = func(msg string, fields ...zap.Field) {
		if stdLogger != nil {
			stdLogger.Info(msg, fields...)
		}
	}
	Error = func(msg string, fields ...zap.Field) {
		if stdLogger != nil {
			stdLogger.Error(msg, fields...)
		}
	}
	Debug = func(msg string, fields ...zap.Field) {
		if stdLogger != nil {
			stdLogger.Debug(msg, fields...)
		}
	}
)

type Logger struct {
	*zap.Logger // zap ensure that zap.Logger is safe for concurrent use
	level       Level
}

var stdLogger *Logger

// LogFileName is the rotating debug log of the release mode. It defaults to
// `.proxygen.log` in the temporary directory.
var LogFileName string

// New creates a new logger. The debug and console modes only log to the
// console, the release mode logs info to the console and everything to a
// rotating file.
func New(mode string) *Logger {
	consoleEncoderCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    "func",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if mode == DebugMode {
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderCfg),
			zapcore.AddSync(os.Stderr),
			DebugLevel,
		)
		return &Logger{
			Logger: zap.New(consoleCore, zap.AddCaller()),
			level:  DebugLevel,
		}
	}

	if mode == ConsoleMode {
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderCfg),
			zapcore.AddSync(os.Stderr),
			InfoLevel,
		)
		return &Logger{
			Logger: zap.New(consoleCore),
			level:  InfoLevel,
		}
	}

	fileName := LogFileName
	if fileName == "" {
		fileName = filepath.Join(os.TempDir(), ".proxygen.log")
	}
	fileEncoderCfg := consoleEncoderCfg
	fileEncoderCfg.EncodeCaller = nil
	fileWriter := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     3, // days
	}
	fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), zapcore.AddSync(fileWriter), DebugLevel)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.AddSync(os.Stderr), InfoLevel)

	return &Logger{
		Logger: zap.New(zapcore.NewTee(consoleCore, fileCore)),
		level:  DebugLevel,
	}
}

func Sync() error {
	if stdLogger != nil {
		return stdLogger.Sync()
	}
	return nil
}

// InitLog sets up the package logger, in the mode named by the
// PROXYGEN_LOG_MODE environment variable.
func InitLog() {
	mode := os.Getenv(configs.TagLogMode)
	if mode == "" {
		mode = ReleaseMode
	}
	Init(mode)
}

// Init sets up the package logger in the given mode.
func Init(mode string) {
	stdLogger = New(mode)
}
