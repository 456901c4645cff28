package logic

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagen/models"
)

// AwaitResult 取一个提示词槽位的首个可用结果。
// 在等待上限内以固定粒度观察任务状态；主槽位优先，主槽位失败或等待超限
// 才考虑备用槽位；主备都失败按内容违规处理。消费到终态后立刻清理任务。
func (s *Service) AwaitResult(ctx context.Context, owner, taskID string, idx int) (*models.ServedImage, error) {
	if idx < 0 || idx >= models.NumVariants {
		return nil, ErrBadIndex
	}

	deadline := time.Now().Add(s.waitBudget)
	for {
		t, err := s.store.Get(owner, taskID)
		if err != nil {
			return nil, err
		}

		served, done, err := s.evaluate(t, idx, false)
		if done {
			return served, err
		}

		if time.Now().After(deadline) {
			// 预算用尽：主槽位还没结果时允许用已完成的备用槽位兜底
			served, done, err := s.evaluate(t, idx, true)
			if done {
				return served, err
			}
			return nil, ErrWaitTimeout
		}

		select {
		case <-ctx.Done():
			// 调用方断开不影响 job 继续写入，下次轮询重新进入同样的判定
			return nil, ctx.Err()
		case <-time.After(s.pollTick):
		}
	}
}

// evaluate 依据主备槽位状态判定本次观察的结局；
// 未到终态时返回 done=false，轮询端继续等待，不产生任何副作用。
func (s *Service) evaluate(t *models.Task, idx int, budgetExpired bool) (*models.ServedImage, bool, error) {
	primary := idx
	fallback := idx + len(t.Prompts)
	ps := t.SlotStatus[primary]
	fs := t.SlotStatus[fallback]

	switch {
	case ps == models.StatusCompleted:
		return s.serve(t, idx, primary), true, nil
	case fs == models.StatusCompleted && (ps == models.StatusFailed || budgetExpired):
		return s.serve(t, idx, fallback), true, nil
	case ps == models.StatusFailed && fs == models.StatusFailed:
		s.finishTerminal(t, idx)
		return nil, true, ErrContentPolicy
	case t.Status == models.StatusFailed:
		s.finishTerminal(t, idx)
		return nil, true, ErrGenerationFailed
	}
	return nil, false, nil
}

// serve 取走一张可用图片：异步归档 + 记录分析，然后立刻删除任务
func (s *Service) serve(t *models.Task, idx, slot int) *models.ServedImage {
	res := t.Results[slot]
	imgID := uuid.NewString()

	s.archiver.Archive(&models.ArchiveItem{
		ImgID:    imgID,
		Owner:    t.Owner,
		Prompt:   t.Prompts[idx],
		Provider: res.Provider,
		Image:    res.Image,
	})
	s.recordAnalysis(t, idx)
	s.cleanup(t.Owner, t.TaskID)

	return &models.ServedImage{
		Index:    slot,
		Image:    res.Image,
		Provider: res.Provider,
		ImgID:    imgID,
	}
}

func (s *Service) finishTerminal(t *models.Task, idx int) {
	s.recordAnalysis(t, idx)
	s.cleanup(t.Owner, t.TaskID)
}

func (s *Service) cleanup(owner, taskID string) {
	s.cancelJobs(owner, taskID)
	if err := s.store.Delete(owner, taskID); err != nil {
		zap.L().Error("failed to delete consumed task",
			zap.String("task_id", taskID), zap.Error(err))
	}
}

func (s *Service) recordAnalysis(t *models.Task, idx int) {
	timings, _ := json.Marshal(t.Timings)
	statuses, _ := json.Marshal(t.SlotStatus)
	s.analytics.Record(&models.Analysis{
		TaskID:    t.TaskID,
		Index:     idx,
		TimeTaken: string(timings),
		Prompts:   t.Prompts,
		Status:    string(statuses),
	})
}
