package logger

import (
	"log/slog"
	"os"
	"sync"
)

var (
	log  *slog.Logger
	once sync.Once
)

// Init configures the global logger. Level is debug outside production.
func Init(env string) {
	once.Do(func() {
		level := slog.LevelDebug
		if env == "production" {
			level = slog.LevelInfo
		}
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	})
}

func get() *slog.Logger {
	if log == nil {
		Init("development")
	}
	return log
}

// normalize tolerates the `logger.Error("Service:Method:Error:", err)` call
// shape used across the codebase by wrapping a trailing bare error value.
func normalize(args []any) []any {
	if len(args)%2 == 1 {
		last := args[len(args)-1]
		if err, ok := last.(error); ok {
			return append(args[:len(args)-1:len(args)-1], "error", err)
		}
		return append(args[:len(args)-1:len(args)-1], "detail", last)
	}
	return args
}

func Info(msg string, args ...any) {
	get().Info(msg, normalize(args)...)
}

func Warn(msg string, args ...any) {
	get().Warn(msg, normalize(args)...)
}

func Error(msg string, args ...any) {
	get().Error(msg, normalize(args)...)
}

func Debug(msg string, args ...any) {
	get().Debug(msg, normalize(args)...)
}
