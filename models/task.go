package models

import "time"

// 任务与槽位的状态常量
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	// NumVariants 每次提交扩写出的提示词数量
	NumVariants = 3
	// NumSlots 每个任务的 job 总数：每个提示词一主一备
	NumSlots = NumVariants * 2
)

// SlotResult 单个 job 的成功结果，Index 与 slot 下标一致
type SlotResult struct {
	Index    int    `json:"index"`
	Image    []byte `json:"image"`
	Provider string `json:"provider"`
}

// JobOutcome 每个 job 结束时上报一次（成功失败都上报）
type JobOutcome struct {
	Index     int
	Succeeded bool
	Duration  time.Duration
	Image     []byte
	Provider  string
}

// Task 一次生图任务的共享状态，主备 slot 配对规则：i 与 i+NumVariants 使用同一条提示词
type Task struct {
	TaskID         string         `json:"task_id"`
	Owner          string         `json:"owner"`
	Prompts        []string       `json:"prompts"`
	Status         string         `json:"status"`
	SlotStatus     map[int]string `json:"slot_status"`
	Results        map[int]SlotResult
	Timings        map[int]float64 `json:"timings"` // 秒
	TotalTimeTaken float64         `json:"total_time_taken"`
	CreatedAt      int64           `json:"created_at"`
}

// ServedImage 轮询端最终取走的图片
type ServedImage struct {
	Index    int
	Image    []byte
	Provider string
	ImgID    string
}

// NewTask 创建初始任务记录，所有 slot 置为 processing
func NewTask(taskID, owner string, prompts []string) *Task {
	slots := make(map[int]string, len(prompts)*2)
	for i := 0; i < len(prompts)*2; i++ {
		slots[i] = StatusProcessing
	}
	return &Task{
		TaskID:     taskID,
		Owner:      owner,
		Prompts:    prompts,
		Status:     StatusProcessing,
		SlotStatus: slots,
		Results:    make(map[int]SlotResult),
		Timings:    make(map[int]float64),
		CreatedAt:  time.Now().Unix(),
	}
}
