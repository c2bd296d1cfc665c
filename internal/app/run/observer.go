package run

import (
	"time"

	"github.com/John-Robertt/mediasort/internal/config"
	"github.com/John-Robertt/mediasort/internal/domain"
)

// Observer 用于把“运行进度/阶段/文件结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：copy 阶段的事件来自多个 goroutine。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFileDone 在单个文件处理完成时调用（dry-run 为决策完成，apply 为复制完成）。
	// done 是已完成数（1 起），size 是源文件字节数。
	OnFileDone(done, total int, res domain.FileResult, size int64, dur time.Duration)
}

// 阶段名（OnPhaseDone 的 name）。
const (
	PhaseScan     = "scan"
	PhaseClassify = "classify"
	PhaseEnrich   = "enrich"
	PhaseDecide   = "decide"
	PhaseCopy     = "copy"
	PhaseReport   = "report"
)

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig)                               {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration)            {}
func (nopObserver) OnFileDone(int, int, domain.FileResult, int64, time.Duration) {}
