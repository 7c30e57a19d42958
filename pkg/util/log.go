package util

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//NewLogger builds the drone's logger. debugLevel <= 0 logs at info, anything above turns on debug output.
//When logFile is not empty, entries are also appended to it. The returned func flushes the logger and
//closes the log file; call it on exit.
func NewLogger(debugLevel int, logFile string) (*zap.SugaredLogger, func(), error) {
	level := zap.InfoLevel
	if debugLevel > 0 {
		level = zap.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	paths := []string{"stderr"}
	if logFile != "" {
		paths = append(paths, logFile)
	}
	sink, closeSinks, err := zap.Open(paths...)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open log file %s", logFile)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		sink,
		zap.NewAtomicLevelAt(level),
	)
	logger := zap.New(core).Sugar()
	cleanup := func() {
		_ = logger.Sync()
		closeSinks()
	}
	return logger, cleanup, nil
}
