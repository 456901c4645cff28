package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"imagen/models"
)

const (
	// 兜底 TTL，正常路径由 Reaper/轮询端显式删除
	redisTaskTTL = 30 * time.Minute

	// 每任务租约，持有者崩溃后自动过期
	leaseTTL     = 10 * time.Second
	leaseBackoff = 50 * time.Millisecond
	leaseWait    = 10 * time.Second
)

// 释放租约时校验持有者，避免删掉别人续上的锁
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// RedisStore 多实例部署用的任务存储。
// 标量字段放在 imagen:task:{owner}:{id} 哈希里，每个 slot 的图片字节
// 单独放在 ...:slot:{i} 哈希，避免大字节参与读改写。
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, ctx: ctx}, nil
}

func taskKey(owner, taskID string) string {
	return "imagen:task:" + owner + ":" + taskID
}

func slotKey(owner, taskID string, idx int) string {
	return taskKey(owner, taskID) + ":slot:" + strconv.Itoa(idx)
}

func lockKey(owner, taskID string) string {
	return "imagen:lock:" + owner + ":" + taskID
}

func (r *RedisStore) Create(t *models.Task) error {
	prompts, err := json.Marshal(t.Prompts)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	key := taskKey(t.Owner, t.TaskID)
	pipe.HSet(r.ctx, key, map[string]interface{}{
		"owner":      t.Owner,
		"status":     t.Status,
		"prompts":    string(prompts),
		"total_time": "0",
		"created_at": t.CreatedAt,
	})
	pipe.Expire(r.ctx, key, redisTaskTTL)
	for i := range t.SlotStatus {
		sk := slotKey(t.Owner, t.TaskID, i)
		pipe.HSet(r.ctx, sk, "status", models.StatusProcessing)
		pipe.Expire(r.ctx, sk, redisTaskTTL)
	}
	_, err = pipe.Exec(r.ctx)
	return err
}

func (r *RedisStore) Get(owner, taskID string) (*models.Task, error) {
	fields, err := r.client.HGetAll(r.ctx, taskKey(owner, taskID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrTaskNotFound
	}

	var prompts []string
	if err := json.Unmarshal([]byte(fields["prompts"]), &prompts); err != nil {
		return nil, fmt.Errorf("corrupt prompts field: %v", err)
	}
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	totalTime, _ := strconv.ParseFloat(fields["total_time"], 64)

	t := &models.Task{
		TaskID:         taskID,
		Owner:          owner,
		Prompts:        prompts,
		Status:         fields["status"],
		SlotStatus:     make(map[int]string),
		Results:        make(map[int]models.SlotResult),
		Timings:        make(map[int]float64),
		TotalTimeTaken: totalTime,
		CreatedAt:      createdAt,
	}

	for i := 0; i < len(prompts)*2; i++ {
		slot, err := r.client.HGetAll(r.ctx, slotKey(owner, taskID, i)).Result()
		if err != nil {
			return nil, err
		}
		if len(slot) == 0 {
			continue
		}
		t.SlotStatus[i] = slot["status"]
		if d, ok := slot["duration"]; ok {
			t.Timings[i], _ = strconv.ParseFloat(d, 64)
		}
		if slot["status"] == models.StatusCompleted {
			t.Results[i] = models.SlotResult{
				Index:    i,
				Image:    []byte(slot["image"]),
				Provider: slot["provider"],
			}
		}
	}
	return t, nil
}

func (r *RedisStore) ApplyJobResult(owner, taskID string, out models.JobOutcome) error {
	token, err := r.acquire(owner, taskID)
	if err != nil {
		return err
	}
	defer r.release(owner, taskID, token)

	exists, err := r.client.Exists(r.ctx, taskKey(owner, taskID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		// 任务已清理，迟到的写入丢弃
		return nil
	}

	sk := slotKey(owner, taskID, out.Index)
	cur, err := r.client.HGet(r.ctx, sk, "status").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if cur != "" && cur != models.StatusProcessing {
		return nil
	}

	fields := map[string]interface{}{
		"status":   models.StatusFailed,
		"duration": strconv.FormatFloat(out.Duration.Seconds(), 'f', 2, 64),
	}
	if out.Succeeded {
		fields["status"] = models.StatusCompleted
		fields["provider"] = out.Provider
		fields["image"] = out.Image
	}
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, sk, fields)
	pipe.Expire(r.ctx, sk, redisTaskTTL)
	_, err = pipe.Exec(r.ctx)
	return err
}

func (r *RedisStore) Finalize(owner, taskID, status string, totalSeconds float64) error {
	token, err := r.acquire(owner, taskID)
	if err != nil {
		return err
	}
	defer r.release(owner, taskID, token)

	key := taskKey(owner, taskID)
	exists, err := r.client.Exists(r.ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	return r.client.HSet(r.ctx, key, map[string]interface{}{
		"status":     status,
		"total_time": strconv.FormatFloat(totalSeconds, 'f', 2, 64),
	}).Err()
}

func (r *RedisStore) Delete(owner, taskID string) error {
	keys := []string{taskKey(owner, taskID)}
	for i := 0; i < models.NumSlots; i++ {
		keys = append(keys, slotKey(owner, taskID, i))
	}
	return r.client.Del(r.ctx, keys...).Err()
}

func (r *RedisStore) ActiveCounts() (int, int, error) {
	owners := make(map[string]struct{})
	tasks := 0

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(r.ctx, cursor, "imagen:task:*", 100).Result()
		if err != nil {
			return 0, 0, err
		}
		for _, key := range keys {
			if strings.Contains(key, ":slot:") {
				continue
			}
			parts := strings.Split(key, ":")
			if len(parts) >= 4 {
				owners[parts[2]] = struct{}{}
			}
			tasks++
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return len(owners), tasks, nil
}

// acquire 获取每任务租约，拿不到就退避重试而不是让 job 失败
func (r *RedisStore) acquire(owner, taskID string) (string, error) {
	token := uuid.NewString()
	key := lockKey(owner, taskID)
	deadline := time.Now().Add(leaseWait)
	for {
		ok, err := r.client.SetNX(r.ctx, key, token, leaseTTL).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", errors.New("task lease acquisition timed out")
		}
		time.Sleep(leaseBackoff)
	}
}

func (r *RedisStore) release(owner, taskID, token string) {
	_ = r.client.Eval(r.ctx, releaseScript, []string{lockKey(owner, taskID)}, token).Err()
}
