package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

const (
	defaultBatchSize = 50
	upsertEndpoint   = "messages-upsert"
)

// webhookTask is one delivery to post. Duplicates replay an earlier payload.
type webhookTask struct {
	Session   string
	Payload   *model.MessagesUpsertPayload
	Duplicate bool
}

// batchTask is a batch of deliveries handled by one pool worker.
type batchTask struct {
	Tasks   []webhookTask
	BaseURL string
	Client  *http.Client
}

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	baseURL := flag.String("url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port), "CRM base URL")
	sessionsStr := flag.String("sessions", "Sessao_01", "Comma-separated list of provider session names")
	rate := flag.Int("rate", 50, "Target webhook deliveries per second (total)")
	duration := flag.Duration("duration", time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Deliveries per worker batch")
	duplicateRatio := flag.Float64("duplicate-ratio", 0.1, "Share of deliveries that replay an earlier message id")
	contacts := flag.Int("contacts", 100, "Number of distinct sender phones to cycle through")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webhook Load Generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Posts provider messages-upsert webhooks, including redeliveries, to the CRM.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *batchSize <= 0 {
		*batchSize = defaultBatchSize
	}
	if *rate <= 0 || *contacts <= 0 {
		fmt.Println("rate and contacts must be positive")
		os.Exit(1)
	}

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := startMetricsServer(*metricsPort)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Metrics server shutdown error", zap.Error(err))
		}
	}()

	sessions := strings.Split(*sessionsStr, ",")
	if len(sessions) == 0 || sessions[0] == "" {
		logger.Log.Fatal("No sessions provided")
	}

	logger.Log.Info("Starting webhook load generator",
		zap.String("url", *baseURL),
		zap.Strings("sessions", sessions),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
		zap.Float64("duplicate_ratio", *duplicateRatio),
	)

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		postBatch(data.(batchTask), &wg)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	gen := newGenerator(sessions, *contacts, *duplicateRatio)
	client := &http.Client{Timeout: 10 * time.Second}

	var loopWg sync.WaitGroup
	loopWg.Add(1)
	go runLoadLoop(ctx, *rate, *duration, *batchSize, *baseURL, client, gen, pool, &wg, &loopWg)

	done := make(chan struct{})
	go func() {
		loopWg.Wait()
		close(done)
	}()

	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal, shutting down...", zap.String("signal", sig.String()))
		cancel()
		<-done
	case <-done:
		logger.Log.Info("Load generation duration finished")
	}

	logger.Log.Info("Waiting for in-flight deliveries...")
	wg.Wait()
	logger.Log.Info("Load generator shutdown complete")
}

func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
		}
	}()
	return server
}

// generator produces webhook deliveries over a fixed set of sender phones.
// Only the load loop goroutine calls next.
type generator struct {
	sessions       []string
	phones         []string
	duplicateRatio float64
	recent         []*model.MessagesUpsertPayload
	counter        int
}

func newGenerator(sessions []string, contacts int, duplicateRatio float64) *generator {
	phones := make([]string, contacts)
	for i := range phones {
		phones[i] = model.FakePhone()
	}
	return &generator{sessions: sessions, phones: phones, duplicateRatio: duplicateRatio}
}

func (g *generator) next() webhookTask {
	if len(g.recent) > 0 && rand.Float64() < g.duplicateRatio {
		p := g.recent[rand.Intn(len(g.recent))]
		return webhookTask{Session: p.Instance, Payload: p, Duplicate: true}
	}

	session := g.sessions[g.counter%len(g.sessions)]
	p := model.NewMessagesUpsertPayload(session)
	p.Key.RemoteJid = g.phones[g.counter%len(g.phones)] + "@s.whatsapp.net"
	g.counter++

	g.recent = append(g.recent, p)
	if len(g.recent) > 256 {
		g.recent = g.recent[1:]
	}
	return webhookTask{Session: session, Payload: p}
}

// runLoadLoop generates deliveries at the target rate and submits them in batches.
func runLoadLoop(ctx context.Context, rate int, duration time.Duration, batchSize int, baseURL string, client *http.Client, gen *generator, pool *ants.PoolWithFunc, wg *sync.WaitGroup, loopWg *sync.WaitGroup) {
	defer loopWg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	durationTimer := time.NewTimer(duration)
	defer durationTimer.Stop()

	batch := make([]webhookTask, 0, batchSize)
	submit := func() {
		if len(batch) == 0 {
			return
		}
		wg.Add(len(batch))
		if err := pool.Invoke(batchTask{Tasks: batch, BaseURL: baseURL, Client: client}); err != nil {
			logger.Log.Warn("Failed to invoke worker pool for batch", zap.Int("batch_task_count", len(batch)), zap.Error(err))
			wg.Add(-len(batch))
			for range batch {
				observer.IncLoadgenErrors(upsertEndpoint)
			}
		}
		batch = make([]webhookTask, 0, batchSize)
	}

	for {
		select {
		case <-ctx.Done():
			submit()
			return
		case <-durationTimer.C:
			submit()
			return
		case <-ticker.C:
			task := gen.next()
			observer.IncLoadgenAttempted(upsertEndpoint)
			batch = append(batch, task)
			if len(batch) >= batchSize {
				submit()
			}
		}
	}
}

// postBatch delivers each webhook of the batch.
func postBatch(batch batchTask, wg *sync.WaitGroup) {
	url := strings.TrimRight(batch.BaseURL, "/") + "/webhook/" + upsertEndpoint
	for _, task := range batch.Tasks {
		func(task webhookTask) {
			defer wg.Done()

			body, err := json.Marshal(task.Payload)
			if err != nil {
				logger.Log.Error("Failed to marshal webhook payload", zap.Error(err))
				observer.IncLoadgenErrors(upsertEndpoint)
				return
			}

			resp, err := batch.Client.Post(url, "application/json", bytes.NewReader(body))
			if err != nil {
				logger.Log.Error("Failed to post webhook", zap.String("session", task.Session), zap.Error(err))
				observer.IncLoadgenErrors(upsertEndpoint)
				return
			}
			_ = resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				logger.Log.Warn("Unexpected webhook status",
					zap.Int("status", resp.StatusCode),
					zap.Bool("duplicate", task.Duplicate))
				observer.IncLoadgenErrors(upsertEndpoint)
				return
			}
			observer.IncLoadgenSucceeded(upsertEndpoint)
		}(task)
	}
}
