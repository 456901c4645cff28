package main

import (
	"log"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"imagen/config"
	"imagen/controller"
	"imagen/dao/mysql"
	"imagen/dao/store"
	"imagen/logic"
	"imagen/pkg/expander"
	"imagen/pkg/logger"
	"imagen/pkg/queue"
	"imagen/pkg/sse"
	"imagen/provider"
	"imagen/worker"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zap.L().Sync()

	if err := mysql.Init(cfg.MySQLDSN); err != nil {
		log.Fatalf("Failed to init MySQL: %v", err)
	}
	defer mysql.Close()

	// 任务存储：配了 Redis 用 Redis（多实例部署），否则进程内
	var taskStore store.TaskStore
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("Failed to init Redis task store: %v", err)
		}
		taskStore = rs
	} else {
		taskStore = store.NewMemoryStore()
	}

	// 分析/归档：配了 RabbitMQ 走队列加后台消费，否则退化为日志
	var analytics logic.AnalyticsRecorder = logic.LogRecorder{}
	var archiver logic.ImageArchiver = logic.LogRecorder{}
	if cfg.RabbitDSN != "" {
		if err := queue.InitRecordMQ(cfg.RabbitDSN); err != nil {
			log.Fatalf("Failed to init record MQ: %v", err)
		}
		mq, err := queue.GetRecordMQ()
		if err != nil {
			log.Fatalf("Failed to get record MQ instance: %v", err)
		}
		defer mq.Close()
		go func() {
			if err := worker.NewProcessor(mq).Start(); err != nil {
				log.Fatalf("record consume failed: %v", err)
			}
		}()
		rec := queue.NewRecorder(mq)
		analytics = rec
		archiver = rec
	}

	providers := provider.Build(provider.Options{
		ArkAPIKey:    cfg.ArkAPIKey,
		GeminiAPIKey: cfg.GeminiAPIKey,
		OpenAIKey:    cfg.OpenAIKey,
	})
	primary, ok := providers[cfg.PrimaryProvider]
	if !ok {
		log.Fatalf("unknown primary provider: %s", cfg.PrimaryProvider)
	}
	fallback, ok := providers[cfg.FallbackProvider]
	if !ok {
		log.Fatalf("unknown fallback provider: %s", cfg.FallbackProvider)
	}

	exp := expander.New(openai.NewClient(cfg.OpenAIKey), "")
	svc := logic.NewService(taskStore, exp, primary, fallback, analytics, archiver, logic.Options{
		WaitBudget: cfg.WaitBudget,
		PollTick:   cfg.PollTick,
		TaskTTL:    cfg.TaskTTL,
	})

	if err := controller.InitTrans("en"); err != nil {
		log.Fatalf("Failed to init validator trans: %v", err)
	}

	r := gin.Default()

	// SSE hub：job 完成时向任务所有者推送槽位事件
	sseHub := sse.NewHub()
	sse.SetDefaultHub(sseHub)
	r.GET("/events", sse.ServeSSE)

	h := controller.NewHandler(svc)
	api := r.Group("/", controller.UserIdentity())
	api.POST("/ask_gpt", h.AskGPT)
	api.POST("/get_image", h.GetImage)
	api.POST("/store_prompt", h.StorePrompt)
	api.POST("/task_storage_analytics", h.TaskStorageAnalytics)

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
