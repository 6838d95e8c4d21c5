package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleHook mirrors every entry to stdout so container-style log tailing
// works while the JSON file stays the durable record.
type ConsoleHook struct {
	out io.Writer
}

func NewConsoleHook() *ConsoleHook {
	return &ConsoleHook{out: os.Stdout}
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

func (h *ConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
