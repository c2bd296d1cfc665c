package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/mediasort/internal/app/run"
	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
)

func TestProgressUI_ApplyFlow(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnStart(config.EffectiveConfig{Source: "/s", Destination: "/d", Apply: true, Concurrency: 2})
	p.OnPhaseDone(run.PhaseDecide, map[string]any{"copied": 1, "renamed": 1, "ignored": 1}, time.Second)
	if !p.tickerStarted {
		t.Fatalf("apply 模式下决策完成后应启动 keepalive")
	}

	p.OnFileDone(1, 3, domain.FileResult{Src: "/s/a.jpg", Dst: "/d/images/a.jpg", Result: domain.ResultCopied}, 2048, 0)
	p.OnFileDone(2, 3, domain.FileResult{Src: "/s/b.jpg", Result: domain.ResultIgnored, Reason: domain.ReasonDuplicateSize}, 10, 0)
	p.OnFileDone(3, 3, domain.FileResult{Src: "/s/c.jpg", Dst: "/d/images/c_1.jpg", Result: domain.ResultRenamed, Error: "copy_failed：boom"}, 10, 0)
	if p.tickerStarted {
		t.Fatalf("最后一个文件完成后应停止 keepalive")
	}
	p.OnPhaseDone(run.PhaseCopy, map[string]any{"failed": 1}, time.Second)
	p.Close()

	out := buf.String()
	for _, want := range []string{
		"mediasort run (apply)",
		"决策: copied=1 renamed=1 ignored=1",
		"复制: workers=2 total=3",
		"[1/3] COPY /s/a.jpg -> /d/images/a.jpg 2.0 KiB",
		"[2/3] SKIP /s/b.jpg (duplicate_size)",
		"[3/3] FAIL /s/c.jpg: copy_failed：boom",
		"复制完成: failed=1 bytes=2.0 KiB",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if p.ok != 1 || p.skip != 1 || p.fail != 1 {
		t.Fatalf("计数不符合预期：ok=%d skip=%d fail=%d", p.ok, p.skip, p.fail)
	}
}

func TestProgressUI_DryRunHasNoTicker(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.OnStart(config.EffectiveConfig{Source: "/s", Destination: "/d", Concurrency: 4})
	p.OnPhaseDone(run.PhaseDecide, map[string]any{"copied": 5}, 0)
	if p.tickerStarted {
		t.Fatalf("dry-run 不应启动 keepalive")
	}
	if !strings.Contains(buf.String(), "不复制/不写报表") {
		t.Fatalf("dry-run 应提示不写入：\n%s", buf.String())
	}
}

func TestProgressUI_KeepaliveLine(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.tickerInterval = 5 * time.Millisecond
	p.keepaliveThreshold = time.Millisecond

	p.OnStart(config.EffectiveConfig{Apply: true, Concurrency: 1})
	p.OnPhaseDone(run.PhaseDecide, map[string]any{"copied": 2}, 0)

	deadline := time.Now().Add(2 * time.Second)
	for {
		p.mu.Lock()
		got := strings.Contains(buf.String(), "进度: done=0/2")
		p.mu.Unlock()
		if got {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("期望 keepalive 输出进度行")
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Close()
}

func TestFormatElapsed(t *testing.T) {
	cases := map[time.Duration]string{
		-time.Second:                 "00:00:00",
		59 * time.Second:             "00:00:59",
		time.Hour + 2*time.Minute:    "01:02:00",
		25*time.Hour + 3*time.Second: "25:00:03",
	}
	for in, want := range cases {
		if got := formatElapsed(in); got != want {
			t.Fatalf("formatElapsed(%s)：期望 %q，实际 %q", in, want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  abcdef  ", 5); got != "ab..." {
		t.Fatalf("期望 %q，实际 %q", "ab...", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("期望原样返回，实际 %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("期望 %q，实际 %q", "ab", got)
	}
}

func TestIntField(t *testing.T) {
	fields := map[string]any{"a": 3, "b": int64(4), "c": "x"}
	if intField(fields, "a") != 3 || intField(fields, "b") != 4 || intField(fields, "c") != 0 || intField(nil, "a") != 0 {
		t.Fatalf("intField 结果不符合预期")
	}
}
