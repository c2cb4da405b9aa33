package log

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how the process logs.
type Options struct {
	Debug    bool
	Format   string // "text" or "json"
	File     string // optional rotated log file, in addition to stderr
	Timezone *time.Location
}

// Configure sets up the standard logrus logger used everywhere in the CLI.
func Configure(opts Options) {
	tz := opts.Timezone
	if tz == nil {
		tz = time.Local
	}

	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if opts.Format == "json" {
		formatter = &logrus.JSONFormatter{}
	}
	logrus.SetFormatter(LocalTimeZoneFormatter{Timezone: tz, Formatter: formatter})

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  2, // megabytes
			Compress: true,
		})
	}
	logrus.SetOutput(out)

	level := logrus.InfoLevel
	if opts.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

// LocalTimeZoneFormatter renders entry times in a fixed location.
type LocalTimeZoneFormatter struct {
	Timezone  *time.Location
	Formatter logrus.Formatter
}

func (u LocalTimeZoneFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.In(u.Timezone)
	return u.Formatter.Format(e)
}
