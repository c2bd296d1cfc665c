package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	ErrCodeScanFailed     = "scan_failed"
	ErrCodeStatFailed     = "stat_failed"
	ErrCodeCopyFailed     = "copy_failed"
	ErrCodeReportFailed   = "report_failed"
	ErrCodeSourceInvalid  = "source_invalid"
	ErrCodeDestLocked     = "dest_locked"
	ErrCodeDestInvalid    = "dest_invalid"
	ErrCodeDecideFailed   = "decide_failed"
	ErrCodeCanceled       = "canceled"
	ErrCodeConfigNotFound = "config_not_found"
	ErrCodeConfigInvalid  = "config_invalid"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	RunID       string `json:"run_id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	DryRun      bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Files   []FileResult  `json:"files"`
	Errors  []ErrorEntry  `json:"errors"`
}

type ReportSummary struct {
	Total      int `json:"total"`
	Copied     int `json:"copied"`
	Renamed    int `json:"renamed"`
	Ignored    int `json:"ignored"`
	CopyFailed int `json:"copy_failed"`
	ScanErrors int `json:"scan_errors"`
}

type FileResult struct {
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Category string `json:"category"`
	Result   Result `json:"result"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ErrorEntry 记录不属于任何 FileResult 的错误（扫描失败、报表失败等）。
type ErrorEntry struct {
	Code string `json:"code"`
	Path string `json:"path,omitempty"`
	Msg  string `json:"msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) files 稳定排序：按 src 字典序（与扫描顺序一致）
// 3) summary 由 files/errors 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Files == nil {
		r.Files = []FileResult{}
	}
	if r.Errors == nil {
		r.Errors = []ErrorEntry{}
	}

	sort.SliceStable(r.Files, func(i, j int) bool { return r.Files[i].Src < r.Files[j].Src })

	s := ReportSummary{Total: len(r.Files)}
	for _, f := range r.Files {
		switch f.Result {
		case ResultCopied:
			s.Copied++
		case ResultRenamed:
			s.Renamed++
		case ResultIgnored:
			s.Ignored++
		}
		if f.Error != "" {
			s.CopyFailed++
		}
	}
	for _, e := range r.Errors {
		if e.Code == ErrCodeScanFailed {
			s.ScanErrors++
		}
	}
	r.Summary = s
}

// Failed 报告本次运行是否存在需要让退出码非 0 的失败。
func (r RunReport) Failed() bool {
	if r.Summary.CopyFailed > 0 {
		return true
	}
	for _, e := range r.Errors {
		if e.Code == ErrCodeReportFailed {
			return true
		}
	}
	return false
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
