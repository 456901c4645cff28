package mysql

import (
	"encoding/json"
	"time"

	"imagen/models"
)

// InsertAnalysis 任务终态的耗时/状态快照落库
func InsertAnalysis(a *models.Analysis) error {
	prompts, err := json.Marshal(a.Prompts)
	if err != nil {
		return err
	}
	sqlStr := `INSERT INTO image_analysis (task_id, slot_index, time_taken, prompts, status, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err = Db.Exec(sqlStr, a.TaskID, a.Index, a.TimeTaken, string(prompts), a.Status, time.Now())
	return err
}
