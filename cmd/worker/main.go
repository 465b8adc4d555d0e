package main

import (
	"context"
	"log"
	"os"

	"github.com/hibiken/asynq"

	"modaapi/dbhelper"
	"modaapi/services"
	"modaapi/tasks"
)

func runScheduler() {

	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}, &asynq.SchedulerOpts{

		LogLevel: asynq.InfoLevel,
	})

	scheduled := []struct {
		cron  string
		task  *asynq.Task
		queue string
		desc  string
	}{
		{
			cron:  "0 */2 * * *",
			task:  tasks.NewAlertScanTask(),
			queue: "alerts",
			desc:  "Search alert scan",
		},
		{
			cron:  "30 3 * * *",
			task:  tasks.NewStaleProfileSweepTask(),
			queue: "profiles",
			desc:  "Stale style profile sweep",
		},
	}

	for _, t := range scheduled {
		entryID, err := scheduler.Register(t.cron, t.task, asynq.Queue(t.queue))
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			"embed":    6,
			"profiles": 3,
			"alerts":   1,
		}},
	)
	awsService := &services.AWSService{}
	embedder := services.NewClipEmbeddingService()
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}

	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc("embedding:garment", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleGarmentEmbeddingTask(ctx, t, db, awsService, embedder)
	})
	mux.HandleFunc("profile:recompute", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleProfileRecomputeTask(ctx, t, db)
	})
	mux.HandleFunc("profile:sweep", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleStaleProfileSweepTask(ctx, t, db)
	})
	mux.HandleFunc("alerts:scan", func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleAlertScanTask(ctx, t, db)
	})

	go runScheduler()
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
