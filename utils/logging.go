// utils/logging.go
package utils

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging tees the standard logger to a rotating file when path is set.
// The returned closer flushes the file; it is a no-op without a path.
func SetupLogging(path string) io.Closer {
	log.SetFlags(log.LstdFlags | log.LUTC)
	if path == "" {
		return nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 7,
		MaxAge:     30, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
