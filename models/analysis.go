package models

// Analysis 一次任务的耗时/状态快照，轮询端消费到终态时异步落库
type Analysis struct {
	TaskID    string   `json:"task_id"`
	Index     int      `json:"index"`
	TimeTaken string   `json:"time_taken"` // JSON 编码的 slot -> 秒
	Prompts   []string `json:"prompts"`
	Status    string   `json:"status"` // JSON 编码的 slot -> 状态
}

// ArchiveItem 被取走的图片及其来源信息，异步归档
type ArchiveItem struct {
	ImgID    string `json:"img_id"`
	Owner    string `json:"owner"`
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
	Image    []byte `json:"image"`
}
