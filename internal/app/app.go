// Package app はアプリケーションの起動と依存関係のワイヤリングを担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/hnlens/internal/comment"
	"github.com/hitoshi/hnlens/internal/config"
	"github.com/hitoshi/hnlens/internal/handler"
	"github.com/hitoshi/hnlens/internal/logger"
	"github.com/hitoshi/hnlens/internal/metrics"
	"github.com/hitoshi/hnlens/internal/middleware"
	"github.com/hitoshi/hnlens/internal/post"
	"github.com/hitoshi/hnlens/internal/retry"
	"github.com/hitoshi/hnlens/internal/security"
	"github.com/hitoshi/hnlens/internal/source"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを構築して
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// .envはローカル開発用で、存在しなくてもエラーにしない
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.SetupDefault(w, cfg.LogLevel)

	return cfg, log, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("data_source", cfg.DataSource),
	)

	return runServe(cfg, log)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, log *slog.Logger) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. アウトバウンドHTTPクライアントの初期化
	// ベースURLは設定で差し替え可能なため、起動時に静的検証を行い、
	// ガード有効時はDialerレベルの検証付きクライアントを使用する
	guard := security.NewOutboundGuard()
	var httpClient *http.Client
	if cfg.OutboundSSRFGuard {
		if err := guard.ValidateURL(cfg.HNAPIBaseURL); err != nil {
			return fmt.Errorf("unsafe upstream base URL: %w", err)
		}
		httpClient = guard.NewSafeClient(cfg.APITimeout)
	} else {
		log.Warn("outbound SSRF guard is disabled")
		httpClient = &http.Client{Timeout: cfg.APITimeout}
	}

	// 3. データソースの初期化
	src := source.New(cfg.DataSource, source.Deps{
		HTTPClient: httpClient,
		Logger:     log,
		BaseURL:    cfg.HNAPIBaseURL,
		Timeout:    cfg.APITimeout,
		Retry:      retry.DefaultOptions(cfg.APIRetryCount),
		Metrics:    collector,
	})

	// 4. サービスの初期化
	sanitizer := security.NewContentSanitizer()
	postService := post.NewService(src, sanitizer, log)
	commentService := comment.NewService(src, sanitizer, collector, log)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		Gatherer:          registry,
		PostService:       postService,
		CommentService:    commentService,
		MaxCommentDepth:   cfg.MaxCommentDepth,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	log.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
