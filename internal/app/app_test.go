package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/vocalia/internal/config"
	"github.com/riskibarqy/vocalia/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/vocalia/internal/infrastructure/standings"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:             config.EnvDev,
		ServiceName:        "vocalia-api-test",
		HTTPAddr:           ":0",
		StorageDriver:      config.StorageMemory,
		CacheEnabled:       true,
		CacheTTL:           time.Minute,
		CORSAllowedOrigins: []string{"*"},
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		LockDriver:         config.LockLocal,
		LockWaitTimeout:    time.Second,
		StandingsNotifier:  config.NotifierLog,
		StandingsWorkers:   1,
		RateLimitRPS:       10,
		RateLimitBurst:     20,
		AnubisBaseURL:      "http://127.0.0.1:1",
		AnubisTimeout:      time.Second,
	}
}

func TestNew_MemoryStackServesSeededMatch(t *testing.T) {
	a, err := New(t.Context(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(func() {
		srv.Close()
		if err := a.Shutdown(t.Context()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{method: http.MethodGet, path: "/v1/matches/" + memory.MatchIDOpening, status: http.StatusOK},
		{method: http.MethodGet, path: "/v1/matches/unknown-match", status: http.StatusNotFound},
		{method: http.MethodPost, path: "/v1/matches/" + memory.MatchIDOpening + "/start", status: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		req, err := http.NewRequestWithContext(t.Context(), tc.method, srv.URL+tc.path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := srv.Client().Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Fatalf("%s %s: expected status %d, got %d", tc.method, tc.path, tc.status, resp.StatusCode)
		}
	}
}

func TestNew_RejectsEmptyAddr(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTPAddr = ""
	if _, err := New(t.Context(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty http addr")
	}
}

func TestBuildStandingsNotifier(t *testing.T) {
	t.Run("log by default", func(t *testing.T) {
		notifier, err := buildStandingsNotifier(memoryConfig(), logging.NewNop())
		if err != nil {
			t.Fatalf("build notifier: %v", err)
		}
		if _, ok := notifier.(*standings.LogNotifier); !ok {
			t.Fatalf("expected *standings.LogNotifier, got %T", notifier)
		}
	})

	t.Run("qstash", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.StandingsNotifier = config.NotifierQStash
		cfg.QStashBaseURL = "https://qstash.example.com"
		cfg.QStashToken = "token"
		cfg.QStashTargetBaseURL = "https://standings.example.com"
		cfg.InternalJobToken = "internal"
		cfg.QStashTimeout = time.Second

		notifier, err := buildStandingsNotifier(cfg, logging.NewNop())
		if err != nil {
			t.Fatalf("build notifier: %v", err)
		}
		if _, ok := notifier.(*standings.QStashNotifier); !ok {
			t.Fatalf("expected *standings.QStashNotifier, got %T", notifier)
		}
	})

	t.Run("amqp without url fails", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.StandingsNotifier = config.NotifierAMQP
		if _, err := buildStandingsNotifier(cfg, logging.NewNop()); err == nil {
			t.Fatalf("expected error for amqp notifier without url")
		}
	})
}

func TestBuildLocker_RedisRejectsBadURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.LockDriver = config.LockRedis
	cfg.RedisURL = "not-a-redis-url"

	a := &App{logger: logging.NewNop()}
	if _, err := a.buildLocker(cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for invalid redis url")
	}
}
