package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示 CLI 与配置都没有给出 source 或 destination。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// EnvPrefix 是环境变量前缀：MEDIASORT_CONCURRENCY、MEDIASORT_LOG_LEVEL 等。
	EnvPrefix = "MEDIASORT"

	DefaultConcurrency   = 4
	MaxConcurrency       = 32
	DefaultThumbnailSize = 128
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 7
	DefaultLogMaxAgeDays = 28
)

// FileNames 是 cwd 下按顺序探测的配置文件名（第一个存在的生效）。
var FileNames = []string{"mediasort.yaml", "mediasort.yml", "mediasort.toml", "mediasort.json"}

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	ConfigFile string

	Source      string
	Destination string

	Apply    bool
	ApplySet bool

	Concurrency    int
	ConcurrencySet bool

	LogLevel    string
	LogLevelSet bool

	NoThumbnails bool
}

// FileConfig 对应配置文件（yaml/toml/json）与 MEDIASORT_* 环境变量的解析结构。
type FileConfig struct {
	Source      string       `mapstructure:"source"`
	Destination string       `mapstructure:"destination"`
	Apply       bool         `mapstructure:"apply"`
	Concurrency int          `mapstructure:"concurrency"`
	ExcludeDirs []string     `mapstructure:"exclude_dirs"`
	Report      ReportConfig `mapstructure:"report"`
	Log         LogConfig    `mapstructure:"log"`
}

type ReportConfig struct {
	Thumbnails    bool `mapstructure:"thumbnails" json:"thumbnails" yaml:"thumbnails" toml:"thumbnails"`
	ThumbnailSize int  `mapstructure:"thumbnail_size" json:"thumbnail_size" yaml:"thumbnail_size" toml:"thumbnail_size"`
}

func (r ReportConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ThumbnailSize, validation.Min(16), validation.Max(1024)),
	)
}

type LogConfig struct {
	Level      string `mapstructure:"level" json:"level" yaml:"level" toml:"level"`
	File       string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.MaxSizeMB, validation.Min(0)),
		validation.Field(&l.MaxBackups, validation.Min(0)),
		validation.Field(&l.MaxAgeDays, validation.Min(0)),
	)
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Source      string       `json:"source" yaml:"source" toml:"source"`
	Destination string       `json:"destination" yaml:"destination" toml:"destination"`
	Apply       bool         `json:"apply" yaml:"apply" toml:"apply"`
	Concurrency int          `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	ExcludeDirs []string     `json:"exclude_dirs" yaml:"exclude_dirs" toml:"exclude_dirs"`
	Report      ReportConfig `json:"report" yaml:"report" toml:"report"`
	Log         LogConfig    `json:"log" yaml:"log" toml:"log"`

	// ConfigFile 是实际读取的配置文件；为空表示没有使用配置文件。
	ConfigFile string `json:"-" yaml:"-" toml:"-"`
}

// Validate 校验合并后的配置。
func (c EffectiveConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Destination, validation.Required, validation.By(differentFrom(c.Source))),
		validation.Field(&c.Concurrency, validation.Min(1), validation.Max(MaxConcurrency)),
		validation.Field(&c.Report),
		validation.Field(&c.Log),
	)
}

func differentFrom(source string) validation.RuleFunc {
	return func(v any) error {
		if d, _ := v.(string); d != "" && d == source {
			return errors.New("不能与 source 相同")
		}
		return nil
	}
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s：缺少 source 或 destination", e.Code)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：配置无效：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) <cwd>/.env 存在时先加载（不覆盖已有环境变量）
// 2) CLI 给了 --config：必须存在
// 3) 否则按 FileNames 顺序探测 <cwd> 下的配置文件（可选）
//
// 覆盖优先级（固定）：CLI 显式指定 > MEDIASORT_* 环境变量 > 配置文件 > 默认值。
// source/destination 中的相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	envPath := filepath.Join(cwdAbs, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
		}
	}

	cfgPath, err := discover(cwdAbs, cli.ConfigFile)
	if err != nil {
		return EffectiveConfig{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func discover(cwd, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		p := absCleanFrom(cwd, explicit)
		fi, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return "", &Error{Code: ErrCodeNotFound, Path: p, Err: os.ErrNotExist}
			}
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if fi.IsDir() {
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: errors.New("是目录而不是文件")}
		}
		return p, nil
	}
	for _, name := range FileNames {
		p := filepath.Join(cwd, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", "")
	v.SetDefault("destination", "")
	v.SetDefault("apply", false)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("exclude_dirs", []string{})
	v.SetDefault("report.thumbnails", true)
	v.SetDefault("report.thumbnail_size", DefaultThumbnailSize)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAgeDays)
}

func merge(cwd string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	source := fc.Source
	if strings.TrimSpace(cli.Source) != "" {
		source = cli.Source
	}
	dest := fc.Destination
	if strings.TrimSpace(cli.Destination) != "" {
		dest = cli.Destination
	}
	if strings.TrimSpace(source) == "" || strings.TrimSpace(dest) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath, Err: errors.New("必须通过参数或配置提供 source 与 destination")}
	}

	apply := fc.Apply
	if cli.ApplySet {
		apply = cli.Apply
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	logCfg := fc.Log
	if cli.LogLevelSet {
		logCfg.Level = cli.LogLevel
	}
	logCfg.Level = strings.ToLower(strings.TrimSpace(logCfg.Level))
	if logCfg.File != "" {
		logCfg.File = absCleanFrom(cwd, logCfg.File)
	}

	report := fc.Report
	if cli.NoThumbnails {
		report.Thumbnails = false
	}

	eff := EffectiveConfig{
		Source:      absCleanFrom(cwd, source),
		Destination: absCleanFrom(cwd, dest),
		Apply:       apply,
		Concurrency: concurrency,
		ExcludeDirs: append([]string{}, fc.ExcludeDirs...),
		Report:      report,
		Log:         logCfg,
		ConfigFile:  cfgPath,
	}
	if err := eff.Validate(); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return eff, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
