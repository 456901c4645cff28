package worker

import (
	"errors"

	"go.uber.org/zap"

	"imagen/dao/mysql"
	"imagen/pkg/queue"
	"imagen/util"
)

const archiveDir = "./public/pic"

// Processor 消费记录队列：分析快照落库，取走的图片归档到磁盘并登记
type Processor struct {
	mq queue.RecordQueue
}

func NewProcessor(mq queue.RecordQueue) *Processor {
	return &Processor{mq: mq}
}

func (p *Processor) Start() error {
	return p.mq.Consume(p.handle)
}

func (p *Processor) handle(msg queue.Message) error {
	switch msg.Kind {
	case "analysis":
		if msg.Analysis == nil {
			return errors.New("analysis message without payload")
		}
		if err := mysql.InsertAnalysis(msg.Analysis); err != nil {
			return err
		}
		zap.L().Info("analysis saved", zap.String("task_id", msg.Analysis.TaskID))
		return nil
	case "archive":
		if msg.Archive == nil {
			return errors.New("archive message without payload")
		}
		path, err := util.SaveImage(archiveDir, msg.Archive.ImgID, msg.Archive.Image)
		if err != nil {
			return err
		}
		if err := mysql.InsertBrowsedImage(msg.Archive.Owner, msg.Archive.ImgID,
			msg.Archive.Prompt, msg.Archive.Provider, path); err != nil {
			return err
		}
		zap.L().Info("image archived", zap.String("img_id", msg.Archive.ImgID))
		return nil
	default:
		return errors.New("unknown record kind: " + msg.Kind)
	}
}
