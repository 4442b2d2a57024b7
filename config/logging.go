package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/relay/slogger"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var logLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "none": true, "off": true,
}

func (l Logging) validate() error {
	if !logLevels[strings.ToLower(strings.TrimSpace(l.Level))] {
		return fmt.Errorf("unknown log level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "", LogFormatText, LogFormatJSON:
		return nil
	}
	return fmt.Errorf("unknown log format %q", l.Format)
}

// NewLogger returns the logger the Logging section describes, writing to w.
func (l Logging) NewLogger(w io.Writer) (slogger.Logger, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	level := strings.ToLower(strings.TrimSpace(l.Level))
	if level == "none" || level == "off" {
		return slogger.NewDevNullLogger(), nil
	}
	if strings.ToLower(l.Format) == LogFormatJSON {
		return slogger.NewJSON(w, slogger.LevelFromString(level)), nil
	}
	return slogger.NewWithWriter(w, slogger.LevelFromString(level)), nil
}
