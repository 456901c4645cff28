package logic

import (
	"go.uber.org/zap"

	"imagen/models"
)

// LogRecorder 没有配置消息队列时的退化实现，只记日志
type LogRecorder struct{}

func (LogRecorder) Record(a *models.Analysis) {
	zap.L().Info("analysis (not persisted)",
		zap.String("task_id", a.TaskID),
		zap.Int("index", a.Index),
		zap.String("status", a.Status))
}

func (LogRecorder) Archive(item *models.ArchiveItem) {
	zap.L().Info("image archive skipped (no record queue)",
		zap.String("img_id", item.ImgID),
		zap.String("provider", item.Provider))
}

// LogNotifier 故障上报的默认实现，外发告警由运维侧接管
type LogNotifier struct{}

func (LogNotifier) NotifyFault(taskID string, cause interface{}) {
	zap.L().Error("scheduling fault",
		zap.String("task_id", taskID),
		zap.Any("cause", cause))
}
