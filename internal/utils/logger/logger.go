package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.SugaredLogger

// logFilePath records where the file sink writes so the final status report
// can point the user at it.
var logFilePath string

// Init builds the global logger with a colored console core and, when
// filePath is non-empty, a plain-text file core appending
// "[timestamp] [LEVEL] message" lines. A file that cannot be opened degrades
// to console-only logging instead of failing the run.
func Init(level string, filePath string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logFilePath = ""
	cores := []zapcore.Core{
		zapcore.NewCore(newConsoleEncoder(), zapcore.Lock(os.Stderr), lvl),
	}

	if filePath != "" {
		f, ferr := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			logFilePath = filePath
			cores = append(cores, zapcore.NewCore(newFileEncoder(), zapcore.AddSync(f), lvl))
		}
	}

	runID := uuid.NewString()
	global = zap.New(zapcore.NewTee(cores...)).Sugar().With("run_id", runID)

	if filePath != "" && logFilePath == "" {
		global.Warnf("Cannot open log file %s, logging to console only", filePath)
	}
	return nil
}

// Logger returns the global sugared logger. It must return a non-nil logger
// even before Init, so packages can grab it at var-initialization time.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// FilePath returns the active log file path, or "" when logging is
// console-only.
func FilePath() string {
	return logFilePath
}

const (
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiReset  = "\x1b[0m"
)

func colorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.InfoLevel:
		enc.AppendString(ansiGreen + "[INFO]" + ansiReset)
	case zapcore.WarnLevel:
		enc.AppendString(ansiYellow + "[WARN]" + ansiReset)
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		enc.AppendString(ansiRed + "[ERROR]" + ansiReset)
	default:
		enc.AppendString("[" + l.CapitalString() + "]")
	}
}

func plainLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		enc.AppendString("[ERROR]")
	default:
		enc.AppendString("[" + l.CapitalString() + "]")
	}
}

func bracketTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format("2006-01-02 15:04:05") + "]")
}

func newConsoleEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "ts",
		EncodeLevel:      colorLevelEncoder,
		EncodeTime:       bracketTimeEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func newFileEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "ts",
		EncodeLevel:      plainLevelEncoder,
		EncodeTime:       bracketTimeEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewConsoleEncoder(cfg)
}
