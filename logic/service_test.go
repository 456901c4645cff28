package logic

import (
	"context"
	"errors"
	"sync"
	"time"

	"imagen/dao/store"
	"imagen/models"
)

// fakeExpander 固定返回 3 条变体
type fakeExpander struct {
	prompts []string
	err     error
}

func (f *fakeExpander) Expand(_ context.Context, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prompts, nil
}

// fakeProvider 把后端名和提示词拼进图片字节，方便断言配对关系
type fakeProvider struct {
	name  string
	err   error
	delay time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.name + "|" + prompt), nil
}

// recordSink 记录分析与归档调用，轮询侧的副作用都落在这里
type recordSink struct {
	mu       sync.Mutex
	analyses []*models.Analysis
	archives []*models.ArchiveItem
}

func (r *recordSink) Record(a *models.Analysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, a)
}

func (r *recordSink) Archive(item *models.ArchiveItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archives = append(r.archives, item)
}

func (r *recordSink) analysisCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.analyses)
}

func (r *recordSink) archiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.archives)
}

var errBackend = errors.New("backend exploded")

func newTestService(st store.TaskStore, primary, fallback *fakeProvider, sink *recordSink, opts Options) *Service {
	exp := &fakeExpander{prompts: []string{"v1", "v2", "v3"}}
	return NewService(st, exp, primary, fallback, sink, sink, opts)
}

// seedTask 绕过调度器直接造一个在途任务，轮询测试用
func seedTask(st store.TaskStore, owner, taskID string) *models.Task {
	t := models.NewTask(taskID, owner, []string{"v1", "v2", "v3"})
	_ = st.Create(t)
	return t
}

func applySlot(st store.TaskStore, owner, taskID string, idx int, succeeded bool, provider string) {
	out := models.JobOutcome{Index: idx, Succeeded: succeeded, Duration: 10 * time.Millisecond}
	if succeeded {
		out.Image = []byte(provider + "|slot")
		out.Provider = provider
	}
	_ = st.ApplyJobResult(owner, taskID, out)
}
