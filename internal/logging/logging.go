// Package logging 构建基于 zerolog 的 logger：stderr 上的人类可读输出，外加可选的 lumberjack 轮转文件。
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

const (
	DefaultLevel      = "info"
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 28
)

// Config 日志配置。File 为空表示只输出到 console。
type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ParseLevel 解析日志级别（大小写不敏感；空串视为 info）。
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("无效的日志级别：%q", s)
	}
	return lvl, nil
}

// New 构建 logger。console 为 nil 时不输出到终端（例如测试）。
//
// 返回的 io.Closer 负责关闭日志文件；没有日志文件时 Close 是 no-op。
func New(cfg Config, console io.Writer) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = console
			w.TimeFormat = time.TimeOnly
		}))
	}

	var closer io.Closer = nopCloser{}
	if strings.TrimSpace(cfg.File) != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   cfg.Compress,
		}
		writers = append(writers, lj)
		closer = lj
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
