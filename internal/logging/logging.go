package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fairtable/internal/config"
)

var writer io.Writer = os.Stdout

// Writer is the destination Init selected. Handler-level loggers that
// bypass zerolog share it so all output lands in one place.
func Writer() io.Writer { return writer }

// Init wires the process-wide logger from cfg. Every line carries the
// service tag, cfg.Service overriding the caller's default. When cfg.File
// is set, output goes to a size-capped file that keeps one rotated
// generation; an unusable file falls back to stdout.
func Init(service string, cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil && parsed != zerolog.NoLevel {
			level = parsed
		}
	}

	var output io.Writer = os.Stdout
	var fileErr error
	if cfg.File != "" {
		w, err := newRotateWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			fileErr = err
		} else {
			output = w
		}
	}
	writer = output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	if cfg.Service != "" {
		service = cfg.Service
	}

	zerolog.SetGlobalLevel(level)
	lctx := zerolog.New(output).With().Timestamp()
	if service != "" {
		lctx = lctx.Str("service", service)
	}
	logger := lctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", cfg.File).Msg("log file unavailable, writing to stdout")
	}
}
