package logic

import (
	"context"
	"errors"
	"sync"
	"time"

	"imagen/dao/store"
	"imagen/models"
	"imagen/provider"
)

// 轮询端可见的终态错误，controller 按类映射状态码
var (
	ErrContentPolicy    = errors.New("prompt violates our content policy")
	ErrGenerationFailed = errors.New("image generation failed")
	ErrWaitTimeout      = errors.New("image generation timed out")
	ErrBadIndex         = errors.New("invalid slot index")
)

// PromptExpander 提示词扩写（见 pkg/expander）
type PromptExpander interface {
	Expand(ctx context.Context, prompt string) ([]string, error)
}

// AnalyticsRecorder 终态分析记录，尽力而为，不得阻塞轮询端
type AnalyticsRecorder interface {
	Record(a *models.Analysis)
}

// ImageArchiver 取走图片的异步归档
type ImageArchiver interface {
	Archive(item *models.ArchiveItem)
}

// OperatorNotifier 调度内部故障的上报钩子，默认只记日志
type OperatorNotifier interface {
	NotifyFault(taskID string, cause interface{})
}

// Options 等待/清理相关的时间参数，零值取默认
type Options struct {
	WaitBudget time.Duration // 轮询等待上限，默认 60s
	PollTick   time.Duration // 轮询观察粒度，默认 1s
	TaskTTL    time.Duration // 任务兜底过期时间，默认 600s

	Notifier OperatorNotifier
}

// Service 生图编排：扇出调度 + 结果轮询 + 过期清理
type Service struct {
	store     store.TaskStore
	expander  PromptExpander
	primary   provider.Provider
	fallback  provider.Provider
	analytics AnalyticsRecorder
	archiver  ImageArchiver
	notifier  OperatorNotifier

	waitBudget time.Duration
	pollTick   time.Duration
	taskTTL    time.Duration

	cancels sync.Map // owner+taskID -> context.CancelFunc
}

func NewService(st store.TaskStore, exp PromptExpander, primary, fallback provider.Provider,
	analytics AnalyticsRecorder, archiver ImageArchiver, opts Options) *Service {
	if opts.WaitBudget <= 0 {
		opts.WaitBudget = 60 * time.Second
	}
	if opts.PollTick <= 0 {
		opts.PollTick = time.Second
	}
	if opts.TaskTTL <= 0 {
		opts.TaskTTL = 600 * time.Second
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{}
	}
	return &Service{
		store:      st,
		expander:   exp,
		primary:    primary,
		fallback:   fallback,
		analytics:  analytics,
		archiver:   archiver,
		notifier:   opts.Notifier,
		waitBudget: opts.WaitBudget,
		pollTick:   opts.PollTick,
		taskTTL:    opts.TaskTTL,
	}
}

// ActiveCounts 在途用户数与任务数，仅供运营统计接口
func (s *Service) ActiveCounts() (int, int, error) {
	return s.store.ActiveCounts()
}

func cancelKey(owner, taskID string) string {
	return owner + "|" + taskID
}

// cancelJobs 尽力取消任务剩余的 job，正确性不依赖这里
func (s *Service) cancelJobs(owner, taskID string) {
	if c, ok := s.cancels.LoadAndDelete(cancelKey(owner, taskID)); ok {
		c.(context.CancelFunc)()
	}
}
