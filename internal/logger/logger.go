package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger *zerolog.Logger
)

func Init() {
	once.Do(func() {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		l := zerolog.New(out).With().Timestamp().Str("app", "country-explorer").Logger()
		logger = &l
	})
}

// SetLevel accepts zerolog level names ("debug", "info", "error", ...).
// Unknown names leave the current level untouched.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

func Info(message string, v ...interface{}) {
	if logger == nil {
		Init()
	}
	logger.Info().Msg(fmt.Sprintf(message, v...))
}

func Error(message string, v ...interface{}) {
	if logger == nil {
		Init()
	}
	logger.Error().Msg(fmt.Sprintf(message, v...))
}

func Debug(message string, v ...interface{}) {
	if logger == nil {
		Init()
	}
	logger.Debug().Msg(fmt.Sprintf(message, v...))
}
