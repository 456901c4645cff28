package controller

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"imagen/dao/mysql"
	"imagen/dao/store"
	"imagen/logic"
	"imagen/models"
	"imagen/pkg/expander"
)

// GenerationService 生图编排层的最小接口（见 logic.Service）
type GenerationService interface {
	Submit(ctx context.Context, owner, prompt string) (string, []string, error)
	AwaitResult(ctx context.Context, owner, taskID string, idx int) (*models.ServedImage, error)
	ActiveCounts() (int, int, error)
}

type Handler struct {
	svc GenerationService
}

func NewHandler(svc GenerationService) *Handler {
	return &Handler{svc: svc}
}

// AskGPT 提交提示词：扩写成 3 条变体并发起主备各 3 路生图，立即返回 task_id
func (h *Handler) AskGPT(c *gin.Context) {
	var req models.AskGPTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		code, msg := translateBindingError(err)
		ResponseErrorWithMsg(c, code, msg)
		return
	}

	owner := currentUser(c)
	taskID, prompts, err := h.svc.Submit(c.Request.Context(), owner, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, expander.ErrPromptTooLong):
			ResponseError(c, CodePromptTooLong)
		case errors.Is(err, expander.ErrProfanity):
			ResponseError(c, CodeProfanity)
		case errors.Is(err, expander.ErrRetryExhausted):
			ResponseError(c, CodeRetryExhausted)
		default:
			zap.L().Error("submit generation failed", zap.Error(err))
			ResponseError(c, CodeServerBusy)
		}
		return
	}

	// 保持前端已有的返回结构
	promptList := make([]gin.H, 0, len(prompts))
	for i, p := range prompts {
		promptList = append(promptList, gin.H{fmt.Sprintf("Prompt%d", i+1): p})
	}
	c.JSON(http.StatusOK, gin.H{"response": gin.H{
		"Prompts": promptList,
		"task_id": taskID,
	}})
}

// GetImage 轮询某个提示词槽位的首个可用图片，最长等 60 秒
func (h *Handler) GetImage(c *gin.Context) {
	var req models.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		code, msg := translateBindingError(err)
		ResponseErrorWithMsg(c, code, msg)
		return
	}

	owner := currentUser(c)
	img, err := h.svc.AwaitResult(c.Request.Context(), owner, req.TaskID, *req.Idx)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTaskNotFound):
			ResponseError(c, CodeTaskNotFound)
		case errors.Is(err, logic.ErrContentPolicy):
			ResponseError(c, CodeContentPolicy)
		case errors.Is(err, logic.ErrBadIndex):
			ResponseError(c, CodeInvalidParams)
		default:
			zap.L().Error("await image result failed",
				zap.String("task_id", req.TaskID), zap.Error(err))
			ResponseError(c, CodeServerBusy)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photo":    base64.StdEncoding.EncodeToString(img.Image),
		"img_id":   img.ImgID,
		"idx":      img.Index,
		"provider": img.Provider,
	})
}

// StorePrompt 记录用户最终选择的提示词版本
func (h *Handler) StorePrompt(c *gin.Context) {
	var req models.StorePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		code, msg := translateBindingError(err)
		ResponseErrorWithMsg(c, code, msg)
		return
	}
	if err := mysql.InsertChosenPrompt(currentUser(c), &req); err != nil {
		zap.L().Error("failed to store chosen prompt", zap.Error(err))
		ResponseError(c, CodeServerBusy)
		return
	}
	ResponseSuccess(c, nil)
}

// TaskStorageAnalytics 在途任务统计，运营用
func (h *Handler) TaskStorageAnalytics(c *gin.Context) {
	users, tasks, err := h.svc.ActiveCounts()
	if err != nil {
		zap.L().Error("failed to count active tasks", zap.Error(err))
		ResponseError(c, CodeServerBusy)
		return
	}
	ResponseSuccess(c, gin.H{
		"active_users": users,
		"active_tasks": tasks,
	})
}
