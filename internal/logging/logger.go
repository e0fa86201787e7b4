// Package logging builds the logr sink shared by every kdash component and
// routes client-go's klog output into it.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var levels = map[string]zapcore.Level{
	"":        zapcore.InfoLevel,
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
}

// New returns the dashboard logger at the given level. Debug switches zap to
// development encoding.
func New(level string) (logr.Logger, error) {
	zapLevel, ok := levels[strings.ToLower(level)]
	if !ok {
		return logr.Logger{}, fmt.Errorf("invalid log level %q: use debug, info, warn, or error", level)
	}
	atomic := zap.NewAtomicLevelAt(zapLevel)
	opts := crzap.Options{
		Development: zapLevel == zapcore.DebugLevel,
		Level:       &atomic,
	}
	return crzap.New(crzap.UseFlagOptions(&opts)), nil
}

// RouteKlog points client-go's klog machinery at the given logger so API
// machinery warnings land in the same stream as kdash's own output.
func RouteKlog(logger logr.Logger) {
	klog.SetLogger(logger.WithName("klog"))
}
