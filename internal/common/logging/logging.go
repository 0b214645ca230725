package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New создаёт логгер сервиса. Неизвестный уровень трактуется как info.
func New(level string, prefix string) *log.Logger {
	return NewWithWriter(os.Stderr, level, prefix)
}

func NewWithWriter(w io.Writer, level string, prefix string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
		Prefix:          prefix,
	})
}
