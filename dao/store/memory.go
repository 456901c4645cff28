package store

import (
	"sync"

	"imagen/models"
)

// MemoryStore 单实例部署用的进程内任务存储
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]map[string]*models.Task // owner -> taskID -> task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]map[string]*models.Task)}
}

func (m *MemoryStore) Create(t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.Owner]; !ok {
		m.tasks[t.Owner] = make(map[string]*models.Task)
	}
	m.tasks[t.Owner][t.TaskID] = t
	return nil
}

// Get 返回任务的快照，调用方拿到的是副本，避免与写入方共享 map
func (m *MemoryStore) Get(owner, taskID string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookup(owner, taskID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return snapshot(t), nil
}

func (m *MemoryStore) ApplyJobResult(owner, taskID string, out models.JobOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookup(owner, taskID)
	if !ok {
		// 任务已被清理，迟到的 job 写入直接丢弃
		return nil
	}
	if s, ok := t.SlotStatus[out.Index]; ok && s != models.StatusProcessing {
		// slot 状态单调，重复上报忽略
		return nil
	}
	t.Timings[out.Index] = out.Duration.Seconds()
	if out.Succeeded {
		t.SlotStatus[out.Index] = models.StatusCompleted
		t.Results[out.Index] = models.SlotResult{Index: out.Index, Image: out.Image, Provider: out.Provider}
	} else {
		t.SlotStatus[out.Index] = models.StatusFailed
	}
	return nil
}

func (m *MemoryStore) Finalize(owner, taskID, status string, totalSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lookup(owner, taskID)
	if !ok {
		return nil
	}
	t.Status = status
	t.TotalTimeTaken = totalSeconds
	return nil
}

func (m *MemoryStore) Delete(owner, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byID, ok := m.tasks[owner]; ok {
		delete(byID, taskID)
		if len(byID) == 0 {
			delete(m.tasks, owner)
		}
	}
	return nil
}

func (m *MemoryStore) ActiveCounts() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := 0
	for _, byID := range m.tasks {
		tasks += len(byID)
	}
	return len(m.tasks), tasks, nil
}

func (m *MemoryStore) lookup(owner, taskID string) (*models.Task, bool) {
	byID, ok := m.tasks[owner]
	if !ok {
		return nil, false
	}
	t, ok := byID[taskID]
	return t, ok
}

func snapshot(t *models.Task) *models.Task {
	cp := *t
	cp.Prompts = append([]string(nil), t.Prompts...)
	cp.SlotStatus = make(map[int]string, len(t.SlotStatus))
	for k, v := range t.SlotStatus {
		cp.SlotStatus[k] = v
	}
	cp.Results = make(map[int]models.SlotResult, len(t.Results))
	for k, v := range t.Results {
		cp.Results[k] = v
	}
	cp.Timings = make(map[int]float64, len(t.Timings))
	for k, v := range t.Timings {
		cp.Timings[k] = v
	}
	return &cp
}
