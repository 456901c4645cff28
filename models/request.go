package models

// AskGPTRequest 提交生图请求
type AskGPTRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ImageRequest 轮询某个提示词槽位的结果
type ImageRequest struct {
	Idx    *int   `json:"idx" binding:"required"`
	Prompt string `json:"prompt"`
	TaskID string `json:"task_id" binding:"required"`
}

// StorePromptRequest 记录用户最终选择的提示词版本
type StorePromptRequest struct {
	Prompt1   string `json:"prompt1" binding:"required"`
	Prompt2   string `json:"prompt2" binding:"required"`
	Prompt3   string `json:"prompt3" binding:"required"`
	ChosenNum int    `json:"chosenNum" binding:"min=1,max=3"`
}
