package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var Logger zerolog.Logger

// New builds a logger writing to w. Unknown levels fall back to info and any
// format other than "json" is rendered for the console.
func New(w io.Writer, level, format string) zerolog.Logger {
	level = strings.ToLower(strings.TrimSpace(level))
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "json") {
		return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger().Level(lvl)
}

// Init configures the package and global loggers, writing to stderr so
// command output stays clean.
func Init(level, format string) {
	InitWithWriter(os.Stderr, level, format)
}

func InitWithWriter(w io.Writer, level, format string) {
	Set(New(w, level, format))
}

// Set replaces the package and global loggers.
func Set(l zerolog.Logger) {
	Logger = l
	zlog.Logger = l
}
