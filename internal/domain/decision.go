package domain

// Result 是决策表中每个源文件的最终结果标签。
type Result string

const (
	ResultCopied  Result = "copied"
	ResultRenamed Result = "renamed"
	ResultIgnored Result = "ignored"
)

// Label 返回报表使用的首字母大写形式（Copied/Renamed/Ignored）。
func (r Result) Label() string {
	switch r {
	case ResultCopied:
		return "Copied"
	case ResultRenamed:
		return "Renamed"
	case ResultIgnored:
		return "Ignored"
	default:
		return string(r)
	}
}

// Winner 表示一次冲突中内容被保留在目标路径上的一方。
type Winner string

const (
	WinnerIncoming Winner = "incoming"
	WinnerExisting Winner = "existing"
)

// 冲突/决策原因（写入 Outcome.Reason，也出现在 report.json）。
const (
	ReasonDuplicateSize   = "duplicate_size"
	ReasonSmallerAudio    = "smaller_than_existing"
	ReasonOlderOther      = "older_than_existing"
	ReasonSameFile        = "same_file"
	ReasonStatFailed      = "stat_failed"
	ReasonSuffixExhausted = "suffix_exhausted"
	ReasonSuperseded      = "superseded"
	ReasonReplaced        = "replaced_existing"
	ReasonReservedPath    = "reserved_path"
)

// Outcome 是单个源文件的最终决策。
//
// 约束：
// - Planned 永远是规划阶段得到的候选路径（用于追溯）
// - Dest 为空表示“不复制”（Result 必为 ignored）
// - Overwrite=true 表示 incoming 胜出并替换目标位置已有的内容
// - Existing 只在 ignored 时非空：占据目标位置、代表该源文件的已有文件（报表据此列出之前运行整理过的文件）
type Outcome struct {
	Source    string
	Category  Category
	Planned   string
	Dest      string
	Existing  string
	Result    Result
	Winner    Winner
	Overwrite bool
	Reason    string
}

// Copied 报告该源文件是否会落盘（copied 或 renamed）。
func (o Outcome) Copied() bool {
	return o.Dest != "" && o.Result != ResultIgnored
}
