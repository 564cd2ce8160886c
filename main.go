package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"insighthub/api"
	"insighthub/common"
	"insighthub/config"
	"insighthub/feedback"
	"insighthub/fetcher"
	"insighthub/kafka"
	"insighthub/pipeline"
	"insighthub/ports"
	"insighthub/ranking"
	"insighthub/resilience"
	"insighthub/types"
	"insighthub/vectorstore"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	executor := resilience.NewExecutor(resilience.ExecutorConfig{
		Policy: resilience.Policy{
			MaxAttempts:       config.MaxAttempts,
			BaseDelay:         config.BaseDelay,
			MaxDelay:          config.MaxDelay,
			Multiplier:        config.BackoffMultiplier,
			RateLimitFactor:   config.RateLimitFactor,
			PerAttemptTimeout: config.PerAttemptTimeout,
			Jitter:            true,
		},
		Breaker: resilience.BreakerConfig{
			FailureThreshold: config.BreakerFailureThreshold,
			Cooldown:         config.BreakerCooldown,
		},
		Metrics: resilience.NewPrometheusSink(registry),
	})

	cohereCfg := ports.CohereConfig{
		APIKey:     cfg.CohereAPIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
		Dimensions: cfg.Dimensions,
	}
	cohere := ports.NewCohereClient(cfg.CohereAPIKey)

	var archiver pipeline.Archiver
	if cfg.S3Bucket != "" {
		archive, err := common.NewArchive(ctx, common.ArchiveConfig{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
		})
		if err != nil {
			log.Fatalf("Failed to initialize raw-content archive: %v", err)
		}
		archiver = archive
	}

	pipe := pipeline.New(pipeline.Ports{
		Adapters: map[types.SourceType]ports.ContentSourceAdapter{
			types.SourceLinkPost: fetcher.NewLinkAdapter(),
		},
		Summarizer: ports.NewCohereSummarizer(cohere, cohereCfg),
		Embedder:   ports.NewCohereEmbedding(cohere, cohereCfg),
		Assessor:   ports.NewCohereQualityAssessor(cohere, cohereCfg),
	}, store, executor, archiver)

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Printf("Warning: Kafka unavailable, falling back to inline processing: %v", err)
			producer = nil
		}
	}

	var submissionProducer pipeline.Producer
	if producer != nil {
		submissionProducer = producer
		defer producer.Close()
	}

	runner := pipeline.NewRunner(pipe, submissionProducer, config.SubmissionTopic)
	runner.Start(ctx)

	processor := feedback.NewProcessor(store, feedback.DefaultWeights())

	if producer != nil {
		submissions, err := pipeline.NewSubmissionConsumer(
			cfg.KafkaBrokers, config.SubmissionTopic, cfg.KafkaGroupID+".submissions", runner)
		if err != nil {
			log.Fatalf("Failed to start submission consumer: %v", err)
		}
		if err := submissions.Start(ctx); err != nil {
			log.Fatalf("Failed to start submission consumer: %v", err)
		}
		defer submissions.Close()

		feedbackConsumer, err := feedback.NewConsumer(
			cfg.KafkaBrokers, config.FeedbackTopic, cfg.KafkaGroupID+".feedback", processor)
		if err != nil {
			log.Fatalf("Failed to start feedback consumer: %v", err)
		}
		if err := feedbackConsumer.Start(ctx); err != nil {
			log.Fatalf("Failed to start feedback consumer: %v", err)
		}
		defer feedbackConsumer.Close()
	}

	deps := api.Dependencies{
		Runner:        runner,
		Store:         store,
		Ranker:        ranking.NewEngine(ranking.DefaultWeights()),
		Feedback:      processor,
		FeedbackTopic: config.FeedbackTopic,
		Metrics:       registry,
	}
	if producer != nil {
		deps.FeedbackProducer = producer
	}

	r := api.NewRouter(deps)

	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (store: %s)", addr, cfg.Backend)
	log.Println("API endpoints available:")
	log.Println("  GET  /health")
	log.Println("  GET  /metrics")
	log.Println("  POST /api/v1/content")
	log.Println("  GET  /api/v1/content/:id")
	log.Println("  POST /api/v1/feeds/ingest")
	log.Println("  GET  /api/v1/feed")
	log.Println("  POST /api/v1/feedback")

	server := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	runner.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (vectorstore.Store, error) {
	switch cfg.Backend {
	case "redis":
		return vectorstore.NewRedisStore(ctx, vectorstore.RedisConfig{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			Dimensions: cfg.Dimensions,
		})
	case "chroma":
		return vectorstore.NewChromaStore(ctx, vectorstore.ChromaConfig{
			Host:       cfg.ChromaHost,
			Port:       cfg.ChromaPort,
			Collection: cfg.ChromaCollection,
			Dimensions: cfg.Dimensions,
		})
	default:
		return vectorstore.NewMemoryStore(cfg.Dimensions), nil
	}
}
