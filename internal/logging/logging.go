package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tablecenter/internal/config"
)

func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if cfg.File != "" {
		if fw, err := newCappedFileWriter(cfg.File, cfg.MaxMB); err == nil {
			output = io.MultiWriter(output, fw)
		}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}
