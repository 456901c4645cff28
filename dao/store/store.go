package store

import (
	"errors"

	"imagen/models"
)

// ErrTaskNotFound 任务不存在（未创建或已过期清理）
var ErrTaskNotFound = errors.New("task not found")

// TaskStore 任务共享状态的最小接口，所有并发写都必须经由这里
//
// 说明：
//   - ApplyJobResult 在同一任务的 2N 个 job 任意交错并发调用下必须安全；
//   - 对已删除任务的 ApplyJobResult/Finalize 是安全的空操作；
//   - slot 状态单调：processing -> completed/failed，之后不再改变。
type TaskStore interface {
	Create(t *models.Task) error
	Get(owner, taskID string) (*models.Task, error)
	ApplyJobResult(owner, taskID string, out models.JobOutcome) error
	Finalize(owner, taskID, status string, totalSeconds float64) error
	Delete(owner, taskID string) error
	// ActiveCounts 返回在途的用户数与任务数，仅用于运营统计
	ActiveCounts() (users, tasks int, err error)
}
