// Package logger provides structured logging functionality
// using the Uber zap logging library. It supports log levels and output customization.
package logger

import (
	"errors"
	"os"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Log is a global SugaredLogger instance from the zap logging library.
// It provides a structured and leveled logging API with a simpler interface
// for common use cases like formatted output and key-value logging.
// Log should be initialized via Init().
var Log = zap.NewNop().Sugar()

// Init initializes the global logger configuration.
// It sets the output destination and global log level.
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries to the output.
// It should be called when shutting down to ensure all logs are written.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingRestyMiddleware attaches request logging to a resty client.
// Every completed response is logged with its URI, method, status, duration
// and size; transport failures are logged by the error hook.
func WithLoggingRestyMiddleware(client *resty.Client) *resty.Client {
	client.SetLogger(Log)

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		Log.Infoln(
			"uri", resp.Request.URL,
			"method", resp.Request.Method,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
			"size", resp.Size(),
			"request_id", resp.Request.Header.Get("X-Request-ID"),
		)

		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		Log.Debugln(
			"uri", req.URL,
			"method", req.Method,
			"error", err,
		)
	})

	return client
}
