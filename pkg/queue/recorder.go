package queue

import (
	"go.uber.org/zap"

	"imagen/models"
)

// Recorder 把分析/归档投递到记录队列，尽力而为：发布失败只记日志
type Recorder struct {
	mq RecordQueue
}

func NewRecorder(mq RecordQueue) *Recorder {
	return &Recorder{mq: mq}
}

func (r *Recorder) Record(a *models.Analysis) {
	if err := r.mq.PublishAnalysis(a); err != nil {
		zap.L().Error("failed to publish analysis record",
			zap.String("task_id", a.TaskID), zap.Error(err))
	}
}

func (r *Recorder) Archive(item *models.ArchiveItem) {
	if err := r.mq.PublishArchive(item); err != nil {
		zap.L().Error("failed to publish archive record",
			zap.String("img_id", item.ImgID), zap.Error(err))
	}
}
