package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sugar is nil until Init runs; calls before that go to a production logger.
var sugar *zap.SugaredLogger

// newConfig returns the JSON config for an app environment. Anything other
// than production logs at debug level with development stack traces.
func newConfig(appEnv string) zap.Config {
	cfg := zap.NewDevelopmentConfig()
	if appEnv == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"service": "plp", "env": appEnv}
	return cfg
}

// Init builds the process logger for appEnv.
func Init(appEnv string) error {
	l, err := newConfig(appEnv).Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	sugar = l.Sugar()
	return nil
}

func current() *zap.SugaredLogger {
	if sugar == nil {
		l, _ := zap.NewProduction(zap.AddCallerSkip(1))
		sugar = l.Sugar()
	}
	return sugar
}

// Close flushes buffered entries.
func Close() error {
	if sugar == nil {
		return nil
	}
	return sugar.Sync()
}

func Info(message string, kv ...interface{})  { current().Infow(message, kv...) }
func Debug(message string, kv ...interface{}) { current().Debugw(message, kv...) }
func Warn(message string, kv ...interface{})  { current().Warnw(message, kv...) }
func Error(message string, kv ...interface{}) { current().Errorw(message, kv...) }

// Fatal logs and exits the process with status 1.
func Fatal(message string, kv ...interface{}) { current().Fatalw(message, kv...) }
