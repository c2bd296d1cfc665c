package run

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	files      []string
	maxDone    int
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnFileDone(done, total int, res domain.FileResult, size int64, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files = append(o.files, res.Src)
	if done > o.maxDone {
		o.maxDone = done
	}
}

func TestExecute_ObserverEvents_DryRun(t *testing.T) {
	src, dest := seedSource(t)
	obs := &recordObserver{}

	if _, _, err := Execute(context.Background(), effFor(src, dest, false), Deps{}, obs); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	want := []string{PhaseScan, PhaseClassify, PhaseEnrich, PhaseDecide}
	if !reflect.DeepEqual(obs.phases, want) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, want)
	}
	if len(obs.files) != 4 || obs.maxDone != 4 {
		t.Fatalf("期望 4 个文件事件，实际 %d（max done=%d）", len(obs.files), obs.maxDone)
	}
}

func TestExecute_ObserverEvents_Apply(t *testing.T) {
	src, dest := seedSource(t)
	obs := &recordObserver{}

	if _, _, err := Execute(context.Background(), effFor(src, dest, true), Deps{}, obs); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []string{PhaseScan, PhaseClassify, PhaseEnrich, PhaseDecide, PhaseCopy, PhaseReport}
	if !reflect.DeepEqual(obs.phases, want) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, want)
	}
	if len(obs.files) != 4 {
		t.Fatalf("期望 4 个文件事件，实际 %d", len(obs.files))
	}
}

func TestExecute_NilObserver_SameDecisions(t *testing.T) {
	src, dest := seedSource(t)
	eff := effFor(src, dest, false)

	a, _, err := Execute(context.Background(), eff, Deps{}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, _, err := Execute(context.Background(), eff, Deps{}, &recordObserver{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(a.Files, b.Files) || a.Summary != b.Summary {
		t.Fatalf("observer 不应改变结果：\nnil=%+v\nobs=%+v", a.Files, b.Files)
	}
}
