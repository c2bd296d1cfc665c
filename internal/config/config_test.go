package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func TestLoadEffective_MissingPaths(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{Source: "src"})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeMissingPath, err, Code(err))
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigFile: "nope.yaml", Source: "a", Destination: "b"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{Source: "src", Destination: "out"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != filepath.Join(cwd, "src") || eff.Destination != filepath.Join(cwd, "out") {
		t.Fatalf("相对路径应以 cwd 为基准：%q %q", eff.Source, eff.Destination)
	}
	if eff.Apply {
		t.Fatalf("默认应为 dry-run")
	}
	if eff.Concurrency != DefaultConcurrency {
		t.Fatalf("期望 concurrency=%d，实际 %d", DefaultConcurrency, eff.Concurrency)
	}
	if !eff.Report.Thumbnails || eff.Report.ThumbnailSize != DefaultThumbnailSize {
		t.Fatalf("缩略图默认值不符合预期：%+v", eff.Report)
	}
	if eff.Log.Level != DefaultLogLevel {
		t.Fatalf("期望 log.level=%q，实际 %q", DefaultLogLevel, eff.Log.Level)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("没有配置文件时 ConfigFile 应为空，实际 %q", eff.ConfigFile)
	}
}

func TestLoadEffective_YAMLFileAndApplyCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "mediasort.yaml"), []byte(`
source: inbox
destination: library
apply: true
concurrency: 64
exclude_dirs: [".git", "tmp"]
report:
  thumbnails: false
`))

	eff, err := LoadEffective(cwd, CLIArgs{Apply: false, ApplySet: true}) // --apply=false
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Apply {
		t.Fatalf("--apply=false 应覆盖配置文件的 apply=true")
	}
	if eff.Source != filepath.Join(cwd, "inbox") || eff.Destination != filepath.Join(cwd, "library") {
		t.Fatalf("路径不符合预期：%q %q", eff.Source, eff.Destination)
	}
	if eff.Concurrency != MaxConcurrency {
		t.Fatalf("concurrency 超出上限应被截断为 %d，实际 %d", MaxConcurrency, eff.Concurrency)
	}
	if len(eff.ExcludeDirs) != 2 || eff.ExcludeDirs[0] != ".git" {
		t.Fatalf("exclude_dirs 不符合预期：%v", eff.ExcludeDirs)
	}
	if eff.Report.Thumbnails {
		t.Fatalf("report.thumbnails=false 应生效")
	}
	if eff.ConfigFile != filepath.Join(cwd, "mediasort.yaml") {
		t.Fatalf("ConfigFile 不符合预期：%q", eff.ConfigFile)
	}
}

func TestLoadEffective_CLIPathsOverrideFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "mediasort.toml"), []byte("source = \"a\"\ndestination = \"b\"\n"))

	eff, err := LoadEffective(cwd, CLIArgs{Source: "/abs/src", Destination: "/abs/dst"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != "/abs/src" || eff.Destination != "/abs/dst" {
		t.Fatalf("CLI 路径应覆盖配置：%q %q", eff.Source, eff.Destination)
	}
}

func TestLoadEffective_EnvOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "mediasort.json"), []byte(`{"source":"a","destination":"b","concurrency":2}`))
	t.Setenv("MEDIASORT_CONCURRENCY", "9")
	t.Setenv("MEDIASORT_LOG_LEVEL", "DEBUG")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Concurrency != 9 {
		t.Fatalf("期望环境变量覆盖 concurrency=9，实际 %d", eff.Concurrency)
	}
	if eff.Log.Level != "debug" {
		t.Fatalf("期望 log.level=debug，实际 %q", eff.Log.Level)
	}

	// CLI 显式指定时优先于环境变量。
	eff, err = LoadEffective(cwd, CLIArgs{Concurrency: 3, ConcurrencySet: true, LogLevel: "warn", LogLevelSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Concurrency != 3 || eff.Log.Level != "warn" {
		t.Fatalf("CLI 应覆盖环境变量：concurrency=%d level=%q", eff.Concurrency, eff.Log.Level)
	}
}

func TestLoadEffective_DotEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, ".env"), []byte("MEDIASORT_SOURCE=from-env\nMEDIASORT_DESTINATION=/lib\n"))
	t.Cleanup(func() {
		_ = os.Unsetenv("MEDIASORT_SOURCE")
		_ = os.Unsetenv("MEDIASORT_DESTINATION")
	})

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != filepath.Join(cwd, "from-env") || eff.Destination != "/lib" {
		t.Fatalf(".env 应生效：%q %q", eff.Source, eff.Destination)
	}
}

func TestLoadEffective_InvalidFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "mediasort.json"), []byte(`{`))

	_, err := LoadEffective(cwd, CLIArgs{Source: "a", Destination: "b"})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		cli  CLIArgs
	}{
		{"same source and destination", `{}`, CLIArgs{Source: "x", Destination: "x"}},
		{"bad log level", `{"log":{"level":"loud"}}`, CLIArgs{Source: "a", Destination: "b"}},
		{"thumbnail too small", `{"report":{"thumbnail_size":4}}`, CLIArgs{Source: "a", Destination: "b"}},
	}
	for _, tc := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, "mediasort.json"), []byte(tc.body))
		_, err := LoadEffective(cwd, tc.cli)
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v", tc.name, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_NoThumbnailsFlag(t *testing.T) {
	cwd := t.TempDir()
	eff, err := LoadEffective(cwd, CLIArgs{Source: "a", Destination: "b", NoThumbnails: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Report.Thumbnails {
		t.Fatalf("--no-thumbnails 应关闭缩略图")
	}
}

func TestEncode_AllFormats(t *testing.T) {
	eff := EffectiveConfig{
		Source:      "/s",
		Destination: "/d",
		Concurrency: 4,
		ExcludeDirs: []string{".git"},
		Report:      ReportConfig{Thumbnails: true, ThumbnailSize: 128},
		Log:         LogConfig{Level: "info"},
		ConfigFile:  "/secret/path.yaml",
	}

	b, err := Encode(eff, "json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var j map[string]any
	if err := json.Unmarshal(b, &j); err != nil || j["destination"] != "/d" {
		t.Fatalf("json 输出不符合预期：%s（err=%v）", b, err)
	}
	if strings.Contains(string(b), "/secret/path.yaml") {
		t.Fatalf("ConfigFile 不应出现在输出中")
	}

	b, err = Encode(eff, "yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var y EffectiveConfig
	if err := yaml.Unmarshal(b, &y); err != nil || y.Report.ThumbnailSize != 128 {
		t.Fatalf("yaml 输出不符合预期：%s（err=%v）", b, err)
	}

	b, err = Encode(eff, "toml")
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	var tm EffectiveConfig
	if err := toml.Unmarshal(b, &tm); err != nil || tm.Source != "/s" || len(tm.ExcludeDirs) != 1 {
		t.Fatalf("toml 输出不符合预期：%s（err=%v）", b, err)
	}

	if _, err := Encode(eff, "xml"); err == nil {
		t.Fatalf("不支持的格式应返回错误")
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
