package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhan-ashraf/simpledex-analytics/internal/aggregator"
	"github.com/farhan-ashraf/simpledex-analytics/internal/amm"
	"github.com/farhan-ashraf/simpledex-analytics/internal/cache"
	"github.com/farhan-ashraf/simpledex-analytics/internal/ledger"
	"github.com/farhan-ashraf/simpledex-analytics/internal/prefs"
	"github.com/farhan-ashraf/simpledex-analytics/internal/scheduler"
	"github.com/farhan-ashraf/simpledex-analytics/internal/server"
)

const (
	testAPIAddr = ":8091"
	testAPIKey  = "test-api-key-integration"
	testPool    = "0xintegrationpool"
)

// fakeGateway is an in-memory ledger gateway speaking the dex_* JSON-RPC
// methods, mutable between refresh cycles.
type fakeGateway struct {
	mu    sync.Mutex
	head  uint64
	swaps []map[string]any
}

func (g *fakeGateway) addSwap(block uint64, index uint32, user string, amountInWei string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.swaps = append(g.swaps, map[string]any{
		"event":       "Swap",
		"address":     testPool,
		"blockNumber": block,
		"logIndex":    index,
		"txHash":      fmt.Sprintf("0xtx%d-%d", block, index),
		"args": map[string]string{
			"user":      user,
			"tokenIn":   "MTK",
			"amountIn":  amountInWei,
			"amountOut": "0x5f5e100", // 100 sUSDC raw
		},
	})
	if block > g.head {
		g.head = block
	}
}

func (g *fakeGateway) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()

		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		var result any
		switch req.Method {
		case "dex_blockNumber":
			result = fmt.Sprintf("0x%x", g.head)
		case "dex_getBlock":
			result = map[string]uint64{"number": uint64(req.Params[0].(float64)), "timestamp": 1700000000}
		case "dex_getEvents":
			event := req.Params[1].(string)
			if event == "Swap" {
				out := g.swaps
				if out == nil {
					out = []map[string]any{}
				}
				result = out
			} else {
				result = []map[string]any{}
			}
		case "dex_getReserves":
			result = map[string]string{
				"reserveA":       "0x3635c9adc5dea00000", // 1000e18
				"reserveB":       "0x3b9aca00",           // 1000e6
				"totalLiquidity": "0x3635c9adc5dea00000",
			}
		case "dex_getUserLiquidity":
			result = map[string]any{"amount": "0x56bc75e2d63100000", "shareBasisPoints": 1000}
		default:
			http.Error(w, "unknown method", http.StatusBadRequest)
			return
		}

		raw, _ := json.Marshal(result)
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": json.RawMessage(raw)})
	}
}

type env struct {
	gateway *fakeGateway
	sched   *scheduler.Scheduler
}

func setupIntegrationTest(t *testing.T) (*env, func()) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   3, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	_ = redisClient.FlushDB(ctx).Err()

	logger := logrus.New()

	gateway := &fakeGateway{head: 50000}
	gwServer := httptest.NewServer(gateway.handler())

	client := ledger.NewClient(ledger.ClientConfig{
		BaseURL:      gwServer.URL,
		Timeout:      2 * time.Second,
		MaxRetries:   1,
		RetryBackoff: 10 * time.Millisecond,
		Logger:       logger,
	})
	reader := ledger.NewReader(client, testPool, 43200, logger)

	agg := aggregator.Aggregator{TokenASymbol: "MTK", DecimalsA: 18, DecimalsB: 6, FeeBps: amm.FeeBps}

	recentCache, err := cache.NewRecentSwapCache(redisClient)
	require.NoError(t, err)
	converter := cache.RecordConverter{TokenASymbol: "MTK", TokenBSymbol: "sUSDC", DecimalsA: 18, DecimalsB: 6}
	recorder := cache.NewRecorder(converter, recentCache, nil, nil, logger)

	sched := scheduler.New(reader, agg, scheduler.Config{
		MetricsInterval: time.Hour,
		SummaryInterval: time.Hour,
		StaleAfter:      time.Hour,
		Logger:          logger,
	}, recorder)
	require.True(t, sched.Refresh(context.Background()))

	prefStore, err := prefs.NewStore(redisClient)
	require.NoError(t, err)

	handlers := &server.Handlers{
		Scheduler:    sched,
		Quoter:       amm.Quoter{DecimalsA: 18, DecimalsB: 6, FeeBps: amm.FeeBps},
		TokenASymbol: "MTK",
		TokenBSymbol: "sUSDC",
		LPDecimals:   18,
		Prefs:        prefStore,
		Recent:       recentCache,
		Ledger:       reader,
		DevMode:      true,
		Logger:       logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: handlers,
		Config: server.ServerConfig{
			Addr:    testAPIAddr,
			DevMode: true,
			APIKey:  testAPIKey,
		},
	})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("Server error: %v", err)
		}
	}()

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
		gwServer.Close()
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return &env{gateway: gateway, sched: sched}, cleanup
}

func makeRequest(t *testing.T, method, url string, body interface{}, expectedStatus int) *http.Response {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)

	assert.Equal(t, expectedStatus, resp.StatusCode, "Expected status %d, got %d", expectedStatus, resp.StatusCode)

	return resp
}

func TestIntegration_Health(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, "http://localhost:8091/v1/health", nil, http.StatusOK)
	defer resp.Body.Close()

	var response server.HealthResponse
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)

	assert.True(t, response.OK)
	assert.False(t, response.Stale)
}

func TestIntegration_MetricsAndQuote(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, "http://localhost:8091/v1/pool/metrics", nil, http.StatusOK)
	defer resp.Body.Close()

	var metrics server.MetricsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metrics))
	assert.InDelta(t, 2000.0, metrics.Metrics.TVL, 1e-6)
	assert.InDelta(t, 1.0, metrics.Metrics.CurrentPrice, 1e-6)

	resp = makeRequest(t, http.MethodGet,
		"http://localhost:8091/v1/pool/quote?tokenIn=MTK&amount=100", nil, http.StatusOK)
	defer resp.Body.Close()

	var quote server.QuoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quote))
	assert.Equal(t, "90.66109", quote.AmountOut)
	assert.Equal(t, uint16(50), quote.ToleranceBps)
}

func TestIntegration_PrefsCRUD(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	base := "http://localhost:8091/v1/prefs/0xabc123"

	// Save
	payload := map[string]interface{}{"tolerance_bps": 200, "deadline_minutes": 45}
	resp := makeRequest(t, http.MethodPut, base, payload, http.StatusOK)
	resp.Body.Close()

	// Load
	resp = makeRequest(t, http.MethodGet, base, nil, http.StatusOK)
	var pref struct {
		ToleranceBps    uint16 `json:"tolerance_bps"`
		DeadlineMinutes uint16 `json:"deadline_minutes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pref))
	resp.Body.Close()
	assert.Equal(t, uint16(200), pref.ToleranceBps)
	assert.Equal(t, uint16(45), pref.DeadlineMinutes)

	// A quote for this user picks up the stored tolerance
	resp = makeRequest(t, http.MethodGet,
		"http://localhost:8091/v1/pool/quote?tokenIn=MTK&amount=100&user=0xabc123", nil, http.StatusOK)
	var quote server.QuoteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quote))
	resp.Body.Close()
	assert.Equal(t, uint16(200), quote.ToleranceBps)

	// Out-of-range settings are rejected at this boundary
	bad := map[string]interface{}{"tolerance_bps": 9000, "deadline_minutes": 45}
	resp = makeRequest(t, http.MethodPut, base, bad, http.StatusBadRequest)
	resp.Body.Close()

	// Delete reverts to defaults
	resp = makeRequest(t, http.MethodDelete, base, nil, http.StatusNoContent)
	resp.Body.Close()

	resp = makeRequest(t, http.MethodGet, base, nil, http.StatusOK)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pref))
	resp.Body.Close()
	assert.Equal(t, uint16(50), pref.ToleranceBps)
	assert.Equal(t, uint16(20), pref.DeadlineMinutes)
}

func TestIntegration_RecentSwapsFlow(t *testing.T) {
	env, cleanup := setupIntegrationTest(t)
	defer cleanup()

	// new swap lands after the first (priming) cycle
	env.gateway.addSwap(50001, 0, "0xalice", "0x56bc75e2d63100000") // 100 MTK
	require.True(t, env.sched.Refresh(context.Background()))

	resp := makeRequest(t, http.MethodGet, "http://localhost:8091/v1/swaps/recent", nil, http.StatusOK)
	defer resp.Body.Close()

	var feed struct {
		Items []cache.SwapRecord `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&feed))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "0xalice", feed.Items[0].User)
	assert.Equal(t, "100", feed.Items[0].AmountIn)
	assert.Equal(t, "100", feed.Items[0].AmountOut)
}

func TestIntegration_Position(t *testing.T) {
	_, cleanup := setupIntegrationTest(t)
	defer cleanup()

	resp := makeRequest(t, http.MethodGet, "http://localhost:8091/v1/positions/0xabc", nil, http.StatusOK)
	defer resp.Body.Close()

	var pos server.PositionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pos))
	assert.Equal(t, "100", pos.Liquidity)
	assert.Equal(t, uint32(1000), pos.ShareBasisPts)
}
