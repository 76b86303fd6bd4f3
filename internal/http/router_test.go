package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-faucet-backend/internal/config"
	"github.com/tbourn/go-faucet-backend/internal/distribution"
	"github.com/tbourn/go-faucet-backend/internal/http/handlers"
	"github.com/tbourn/go-faucet-backend/internal/http/middleware"
	"github.com/tbourn/go-faucet-backend/internal/repo"
	"github.com/tbourn/go-faucet-backend/internal/services"
)

const testAddr = "0x52908400098527886E0F7030069857D2E4169EE7"

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(db) })
	return db
}

// fakeDistributor serves the partner API. Status polls report processing
// until minedAfter polls have been seen.
type fakeDistributor struct {
	minedAfter int32
	polls      atomic.Int32
	apiKeys    atomic.Int32
}

func (f *fakeDistributor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/partners/distributors/can-claim", func(w http.ResponseWriter, r *http.Request) {
		f.countKey(r)
		_, _ = io.WriteString(w, `{"success":true,"data":{"canClaim":true,"amount":0.5,"amountInWei":"500000000000000000"}}`)
	})
	mux.HandleFunc("/partners/distributors/claim", func(w http.ResponseWriter, r *http.Request) {
		f.countKey(r)
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"success":true,"transactionId":"sub-`+uuid.NewString()+`"}`)
			return
		}
		if f.polls.Add(1) < f.minedAfter {
			_, _ = io.WriteString(w, `{"success":true,"data":{"status":"processing"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"status":"completed","transactionHash":"0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"}}`)
	})
	return mux
}

func (f *fakeDistributor) countKey(r *http.Request) {
	if r.Header.Get(distribution.APIKeyHeader) == "k" {
		f.apiKeys.Add(1)
	}
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Faucet: config.FaucetConfig{
			Cooldown:      24 * time.Hour,
			PollInterval:  5 * time.Millisecond,
			PollDeadline:  500 * time.Millisecond,
			ExplorerTxURL: "https://scan.example/tx/",
		},
	}
}

// newStack wires the real store, client and orchestrator behind the router.
func newStack(t *testing.T, cfg config.Config, fd *fakeDistributor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(fd.handler())
	t.Cleanup(srv.Close)

	remote := distribution.New(config.DistributorConfig{BaseURL: srv.URL + "/", APIKey: "k", Timeout: time.Second})
	svc := services.NewClaimService(repo.NewClaimStore(newTestDB(t)), remote, cfg.Faucet)

	r := gin.New()
	RegisterRoutes(r, svc, cfg)
	return r
}

func claimReq(user, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", bytes.NewBufferString(`{"address":"`+addr+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, user)
	return req
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newStack(t, baseConfig(), &fakeDistributor{})

	// /health works
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 envelope
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	var er handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != handlers.ErrCodeNotFound {
		t.Fatalf("404 envelope: %v %s", err, w.Body.String())
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off by default
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newStack(t, cfg, &fakeDistributor{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	r := newStack(t, cfg, &fakeDistributor{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("/claims")) {
		t.Fatalf("swagger doc: %d %s", w.Code, w.Body.String())
	}
}

func TestClaimFlow_EndToEnd(t *testing.T) {
	fd := &fakeDistributor{minedAfter: 3}
	r := newStack(t, baseConfig(), fd)

	// First claim is confirmed after a few polls.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, claimReq("u1", testAddr))
	if w.Code != http.StatusOK {
		t.Fatalf("first claim: %d %s", w.Code, w.Body.String())
	}
	var resp handlers.ClaimResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.State != "confirmed" || resp.Amount != "0.5 ETH" || resp.NextEligibleAt == nil {
		t.Fatalf("unexpected claim response: %+v", resp)
	}
	if got := fd.polls.Load(); got < 3 {
		t.Fatalf("expected at least 3 polls, got %d", got)
	}
	if fd.apiKeys.Load() < 3 {
		t.Fatalf("partner api key not sent on every call")
	}

	// Second claim inside the window is rejected locally.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, claimReq("u1", testAddr))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("second claim: %d %s", w.Code, w.Body.String())
	}
	var er handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != handlers.ErrCodeCooldownActive {
		t.Fatalf("cooldown envelope: %v %s", err, w.Body.String())
	}

	// Status shows the stored claim.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/claims/status", nil)
	req.Header.Set(middleware.HeaderUserID, "u1")
	r.ServeHTTP(w, req)
	var st handlers.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !st.CooldownActive || st.Last == nil || st.Last.Amount != "0.5 ETH" || st.Last.Address != testAddr {
		t.Fatalf("unexpected status: %+v", st)
	}

	// Invalid address never reaches the distributor.
	before := fd.apiKeys.Load()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, claimReq("u2", "0x1234"))
	if w.Code != http.StatusBadRequest || fd.apiKeys.Load() != before {
		t.Fatalf("invalid address: %d, remote calls %d -> %d", w.Code, before, fd.apiKeys.Load())
	}
}

func TestClaimFlow_AccessGate(t *testing.T) {
	cfg := baseConfig()
	cfg.Access = config.AccessConfig{GuildID: "g1", ChannelID: "c1"}
	fd := &fakeDistributor{}
	r := newStack(t, cfg, fd)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, claimReq("u1", testAddr))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 outside the guild, got %d", w.Code)
	}
	if fd.apiKeys.Load() != 0 {
		t.Fatalf("gated request must not reach the distributor")
	}

	// /health is not gated
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
