// Package logger sets up the process-wide structured logger.
package logger

import (
	"fmt"
	"sync"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"github.com/cyder-hub/cyder-gateway/common/config"
)

var (
	// Logger is the process-wide structured logger.
	Logger glog.Logger

	initOnce sync.Once
)

func init() {
	initLogger()
}

func initLogger() {
	initOnce.Do(func() {
		level := glog.LevelInfo
		if config.DebugEnabled {
			level = glog.LevelDebug
		}

		var err error
		Logger, err = glog.NewConsoleWithName("cyder-gateway", level)
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %+v", err))
		}
	})
}

// WithFields returns a child logger carrying the given key/value context,
// the way a per-request logger is derived in the teacher's gin middleware.
func WithFields(fields ...zap.Field) glog.Logger {
	return Logger.With(fields...)
}
