package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Options selects the writers and level of a logger.
type Options struct {
	Level string
	// File enables a rotating file writer at this path when non-empty.
	File string
	// Quiet drops the console writer, e.g. when stdout carries command output.
	Quiet bool
}

// New builds an arbor logger from opts.
func New(opts Options) arbor.ILogger {
	logger := arbor.NewLogger()

	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "warning: create log dir: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   path,
				TimeFormat: "15:04:05",
				MaxSize:    50 * 1024 * 1024,
				MaxBackups: 3,
				TextOutput: true,
			})
		}
	}

	if !opts.Quiet {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
			TextOutput: true,
		})
	}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}

// NewNop returns a logger that discards everything.
func NewNop() arbor.ILogger {
	return arbor.NewNoOpLogger()
}
