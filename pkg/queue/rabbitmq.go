package queue

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"imagen/models"
)

// Message 分析/归档共用一条队列，按 Kind 区分
type Message struct {
	Kind     string              `json:"kind"` // analysis | archive
	Analysis *models.Analysis    `json:"analysis,omitempty"`
	Archive  *models.ArchiveItem `json:"archive,omitempty"`
}

// RecordQueue 终态记录队列的最小接口（发布与消费）
type RecordQueue interface {
	PublishAnalysis(a *models.Analysis) error
	PublishArchive(item *models.ArchiveItem) error
	Consume(handle func(Message) error) error
	Close() error
}

var (
	recordOnce     sync.Once
	recordInstance RecordQueue
	recordInitErr  error
)

// InitRecordMQ 使用单例模式初始化记录队列（首次调用生效，后续调用忽略）
func InitRecordMQ(dsn string) error {
	recordOnce.Do(func() {
		inst, err := newAMQPRecordQueue(dsn)
		if err != nil {
			recordInitErr = err
			zap.L().Error("failed to init record AMQP queue", zap.Error(err))
			return
		}
		recordInstance = inst
	})
	return recordInitErr
}

// GetRecordMQ 返回单例的 RecordQueue，未初始化时返回错误
func GetRecordMQ() (RecordQueue, error) {
	if recordInstance == nil {
		if recordInitErr != nil {
			return nil, recordInitErr
		}
		return nil, errors.New("record mq not initialized; call InitRecordMQ")
	}
	return recordInstance, nil
}

// --- AMQP 实现 ---------------------------------------------------------

type amqpRecordQueue struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
}

func newAMQPRecordQueue(dsn string) (RecordQueue, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// 死信交换机和队列，重试耗尽的消息进这里
	dlxName := "imagen_records_dlq_exchange"
	dlqName := "imagen_records_dlq"

	if err := ch.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(dlqName, dlqName, dlxName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqName,
	}
	q, err := ch.QueueDeclare("imagen_records", true, false, false, false, args)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	_ = ch.Qos(5, 0, false)

	return &amqpRecordQueue{conn: conn, ch: ch, queueName: q.Name}, nil
}

func (q *amqpRecordQueue) PublishAnalysis(a *models.Analysis) error {
	return q.publish(Message{Kind: "analysis", Analysis: a}, nil)
}

func (q *amqpRecordQueue) PublishArchive(item *models.ArchiveItem) error {
	return q.publish(Message{Kind: "archive", Archive: item}, nil)
}

func (q *amqpRecordQueue) publish(msg Message, headers amqp.Table) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.ch.Publish("", q.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         b,
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
	})
}

// Consume 消费记录消息，处理失败重试 3 次后进死信队列
func (q *amqpRecordQueue) Consume(handle func(Message) error) error {
	deliveries, err := q.ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for d := range deliveries {
		var msg Message
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			zap.L().Error("invalid record payload", zap.Error(err))
			_ = d.Nack(false, false) // 进DLQ
			continue
		}

		if err := handle(msg); err != nil {
			attempts := headerAttempts(d.Headers)
			if attempts >= 3 {
				zap.L().Error("record message exceeded retries, sending to DLQ",
					zap.String("kind", msg.Kind), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}

			newHeaders := amqp.Table{"x-attempts": attempts + 1}
			for k, v := range d.Headers {
				if k != "x-attempts" {
					newHeaders[k] = v
				}
			}
			if err := q.publishRaw(d.Body, newHeaders); err != nil {
				zap.L().Error("failed to republish record message", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
			continue
		}
		_ = d.Ack(false)
	}
	return nil
}

func (q *amqpRecordQueue) publishRaw(b []byte, headers amqp.Table) error {
	return q.ch.Publish("", q.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         b,
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
	})
}

func headerAttempts(headers amqp.Table) int {
	h, ok := headers["x-attempts"]
	if !ok {
		return 0
	}
	switch v := h.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func (q *amqpRecordQueue) Close() error {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
