package domain

// WorkItem 是按分类聚合后的工作单元。
// 为了数据局部性，WorkItem 只保存文件下标（指向 []FileRecord），避免复制大结构体。
//
// 约束：FileIdx 保持源列表顺序（后缀编号依赖该顺序才能在多次运行间可复现）。
type WorkItem struct {
	Category Category
	FileIdx  []int
}
