package mysql

import (
	"time"

	"imagen/models"
)

// InsertChosenPrompt 记录用户最终选择了哪个提示词版本
func InsertChosenPrompt(owner string, req *models.StorePromptRequest) error {
	sqlStr := `INSERT INTO chosen_prompts (owner, prompt1, prompt2, prompt3, chosen_num, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := Db.Exec(sqlStr, owner, req.Prompt1, req.Prompt2, req.Prompt3, req.ChosenNum, time.Now())
	return err
}
