package logic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagen/models"
	"imagen/pkg/sse"
	"imagen/provider"
)

// Submit 把一条提示词扩写成 3 条变体并对主备后端各发 3 个 job，立即返回。
// 槽位配对规则：i 走主后端，i+3 用同一条变体走备用后端。
func (s *Service) Submit(ctx context.Context, owner, prompt string) (string, []string, error) {
	prompts, err := s.expander.Expand(ctx, prompt)
	if err != nil {
		return "", nil, err
	}

	taskID := uuid.NewString()
	t := models.NewTask(taskID, owner, prompts)
	if err := s.store.Create(t); err != nil {
		return "", nil, fmt.Errorf("failed to create task record: %w", err)
	}

	// job 生命周期不跟随请求，挂在独立的可取消 context 上
	jobCtx, cancel := context.WithCancel(context.Background())
	s.cancels.Store(cancelKey(owner, taskID), cancel)

	start := time.Now()
	var wg sync.WaitGroup
	for i, p := range prompts {
		wg.Add(2)
		go s.runJob(jobCtx, &wg, owner, taskID, i, p, s.primary)
		go s.runJob(jobCtx, &wg, owner, taskID, i+len(prompts), p, s.fallback)
	}
	go s.supervise(owner, taskID, &wg, start)

	// Reaper：到点无条件删除，和轮询端的即时清理互为幂等
	time.AfterFunc(s.taskTTL, func() {
		s.cancelJobs(owner, taskID)
		if err := s.store.Delete(owner, taskID); err != nil {
			zap.L().Error("reaper failed to delete task",
				zap.String("task_id", taskID), zap.Error(err))
		}
	})

	return taskID, prompts, nil
}

// runJob 单个 (变体, 后端) job：结束时无论成败都恰好上报一次
func (s *Service) runJob(ctx context.Context, wg *sync.WaitGroup, owner, taskID string,
	idx int, prompt string, prov provider.Provider) {
	defer wg.Done()

	start := time.Now()
	img, err := prov.Generate(ctx, prompt)
	out := models.JobOutcome{Index: idx, Duration: time.Since(start)}
	if err != nil {
		zap.L().Warn("image job failed",
			zap.String("task_id", taskID),
			zap.Int("index", idx),
			zap.String("provider", prov.Name()),
			zap.Error(err))
	} else {
		out.Succeeded = true
		out.Image = img
		out.Provider = prov.Name()
	}

	if err := s.store.ApplyJobResult(owner, taskID, out); err != nil {
		zap.L().Error("failed to apply job result",
			zap.String("task_id", taskID), zap.Int("index", idx), zap.Error(err))
	}
	s.publishSlotEvent(owner, taskID, out)
}

// supervise 等所有 job 上报后写任务终态，单个 job 失败不影响整体
func (s *Service) supervise(owner, taskID string, wg *sync.WaitGroup, start time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.notifier.NotifyFault(taskID, r)
			_ = s.store.Finalize(owner, taskID, models.StatusFailed, time.Since(start).Seconds())
		}
	}()

	wg.Wait()
	elapsed := time.Since(start).Seconds()
	if err := s.store.Finalize(owner, taskID, models.StatusCompleted, elapsed); err != nil {
		zap.L().Error("failed to finalize task",
			zap.String("task_id", taskID), zap.Error(err))
		return
	}
	zap.L().Info("task generation finished",
		zap.String("task_id", taskID), zap.Float64("seconds", elapsed))
}

// publishSlotEvent 通过 SSE 把槽位结果推给任务所有者，前端可以不等轮询先渲染进度
func (s *Service) publishSlotEvent(owner, taskID string, out models.JobOutcome) {
	hub := sse.GetHub()
	if hub == nil {
		return
	}
	status := models.StatusFailed
	if out.Succeeded {
		status = models.StatusCompleted
	}
	payload := struct {
		TaskID   string `json:"task_id"`
		Index    int    `json:"index"`
		Status   string `json:"status"`
		Provider string `json:"provider,omitempty"`
	}{taskID, out.Index, status, out.Provider}

	if b, err := json.Marshal(payload); err == nil {
		hub.PublishTopic(owner, b)
	}
}
