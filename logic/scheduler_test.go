package logic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"imagen/dao/store"
	"imagen/models"
)

// waitForStatus 轮询存储直到任务进入给定状态
func waitForStatus(t *testing.T, st store.TaskStore, owner, taskID, status string) *models.Task {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		task, err := st.Get(owner, taskID)
		if err == nil && task.Status == status {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %s", taskID, status)
	return nil
}

func TestSubmitFansOutAllSlots(t *testing.T) {
	st := store.NewMemoryStore()
	sink := &recordSink{}
	svc := newTestService(st, &fakeProvider{name: "doubao"}, &fakeProvider{name: "gemini"}, sink, fastOptions())

	taskID, prompts, err := svc.Submit(context.Background(), "u1", "a cat")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)
	require.Equal(t, []string{"v1", "v2", "v3"}, prompts)

	task := waitForStatus(t, st, "u1", taskID, models.StatusCompleted)
	require.Len(t, task.Results, models.NumSlots)

	// 配对关系：slot i 是主后端，slot i+3 是同一条变体的备用后端
	for i, p := range prompts {
		primary := task.Results[i]
		fallback := task.Results[i+len(prompts)]
		require.Equal(t, []byte("doubao|"+p), primary.Image)
		require.Equal(t, "doubao", primary.Provider)
		require.Equal(t, []byte("gemini|"+p), fallback.Image)
		require.Equal(t, "gemini", fallback.Provider)
	}
	for i := 0; i < models.NumSlots; i++ {
		require.Equal(t, models.StatusCompleted, task.SlotStatus[i])
		require.Greater(t, task.Timings[i], 0.0)
	}
	require.Greater(t, task.TotalTimeTaken, 0.0)
}

func TestSubmitPrimaryFailureDoesNotSinkTask(t *testing.T) {
	st := store.NewMemoryStore()
	sink := &recordSink{}
	svc := newTestService(st, &fakeProvider{name: "doubao", err: errBackend}, &fakeProvider{name: "gemini"}, sink, fastOptions())

	taskID, prompts, err := svc.Submit(context.Background(), "u1", "a cat")
	require.NoError(t, err)

	// 主后端全挂也算任务完成，失败只体现在 slot 状态上
	task := waitForStatus(t, st, "u1", taskID, models.StatusCompleted)
	for i := range prompts {
		require.Equal(t, models.StatusFailed, task.SlotStatus[i])
		require.Equal(t, models.StatusCompleted, task.SlotStatus[i+len(prompts)])
	}

	img, err := svc.AwaitResult(context.Background(), "u1", taskID, 0)
	require.NoError(t, err)
	require.Equal(t, 3, img.Index)
	require.Equal(t, "gemini", img.Provider)
}

func TestSubmitExpanderErrorPropagates(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, &fakeExpander{err: errBackend},
		&fakeProvider{name: "doubao"}, &fakeProvider{name: "gemini"},
		&recordSink{}, &recordSink{}, fastOptions())

	_, _, err := svc.Submit(context.Background(), "u1", "a cat")
	require.ErrorIs(t, err, errBackend)

	_, tasks, err := st.ActiveCounts()
	require.NoError(t, err)
	require.Zero(t, tasks)
}

func TestReaperDeletesExpiredTask(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestService(st,
		&fakeProvider{name: "doubao", delay: 50 * time.Millisecond},
		&fakeProvider{name: "gemini", delay: 50 * time.Millisecond},
		&recordSink{}, Options{
			WaitBudget: time.Second,
			PollTick:   10 * time.Millisecond,
			TaskTTL:    150 * time.Millisecond,
		})

	taskID, _, err := svc.Submit(context.Background(), "u1", "a cat")
	require.NoError(t, err)

	_, err = st.Get("u1", taskID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := st.Get("u1", taskID)
		return err == store.ErrTaskNotFound
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSubmitConsumeCancelsRemainingJobs(t *testing.T) {
	st := store.NewMemoryStore()
	sink := &recordSink{}
	// 备用后端很慢，主后端立刻完成；消费后备用 job 应被取消
	svc := newTestService(st,
		&fakeProvider{name: "doubao"},
		&fakeProvider{name: "gemini", delay: 5 * time.Second},
		sink, fastOptions())

	taskID, _, err := svc.Submit(context.Background(), "u1", "a cat")
	require.NoError(t, err)

	img, err := svc.AwaitResult(context.Background(), "u1", taskID, 0)
	require.NoError(t, err)
	require.Equal(t, "doubao", img.Provider)

	// 取消信号已发出，cancels 表里不应残留
	_, ok := svc.cancels.Load(cancelKey("u1", taskID))
	require.False(t, ok)
}
