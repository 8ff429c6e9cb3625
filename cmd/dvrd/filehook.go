package main

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// fileHook writes entries at or above a minimum level to out as uncolored
// text, independent of what the console logger prints.
type fileHook struct {
	formatter logrus.Formatter
	levels    []logrus.Level

	mu  sync.Mutex
	out io.Writer
}

func newFileHook(out io.Writer, min logrus.Level) *fileHook {
	var levels []logrus.Level
	for _, level := range logrus.AllLevels {
		if level <= min {
			levels = append(levels, level)
		}
	}

	return &fileHook{
		formatter: &logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
		levels:    levels,
		out:       out,
	}
}

// Fire implements logrus.Hook.
func (h *fileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)

	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err = h.out.Write(b)
	return err
}

// Levels implements logrus.Hook.
func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}
