package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/engine"
	"github.com/Raman-Maurya/mystartup-sub001/internal/marketdata"
	"github.com/Raman-Maurya/mystartup-sub001/internal/observability"
	"github.com/Raman-Maurya/mystartup-sub001/internal/server"
	"github.com/Raman-Maurya/mystartup-sub001/internal/settlement"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
	"github.com/Raman-Maurya/mystartup-sub001/internal/testutil"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

var metrics = observability.NewMetrics()

func newTestServer() (*server.Server, *store.Memory) {
	mem := store.NewMemory()
	prices := marketdata.NewCache()
	snapshots := marketdata.NewSnapshots(prices)
	wallets := wallet.NewService(mem, mem, zerolog.Nop())
	settler := settlement.NewCoordinator(mem, mem, mem, wallets, snapshots, zerolog.Nop())
	eng := engine.New(mem, mem, mem, wallets, prices, settler, metrics, zerolog.Nop())
	health := observability.NewHealthChecker()
	srv := server.New(server.Config{Addr: ":0"}, eng, wallets, health, metrics, zerolog.Nop())
	return srv, mem
}

// ============================================================================
// Test: admin settlement route
// ============================================================================

func TestSettleRoute_SettlesAndIsIdempotent(t *testing.T) {
	srv, mem := newTestServer()
	defer srv.Shutdown(context.Background())
	router := srv.Router()

	now := time.Now().UTC()
	userID := uuid.New()
	c := testutil.ActiveContest(now, userID)
	c.Window.End = now.Add(-time.Minute)
	if err := mem.CreateContest(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contests/"+c.ID.String()+"/settle", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("settle attempt %d: got %d, body %s", i, rec.Code, rec.Body.String())
		}
	}

	settled, _ := mem.GetContest(context.Background(), c.ID)
	if settled.Status != contest.StatusCompleted {
		t.Errorf("status: got %s, want COMPLETED", settled.Status)
	}
	if !settled.Financials.Recorded() {
		t.Error("settlement must record financials")
	}
}

func TestSettleRoute_UnknownContest(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contests/"+uuid.NewString()+"/settle", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

// ============================================================================
// Test: auth middleware
// ============================================================================

func TestAuthedRoutes_RequireUserHeader(t *testing.T) {
	srv, mem := newTestServer()
	defer srv.Shutdown(context.Background())
	router := srv.Router()

	c := testutil.NewContest(time.Now().UTC())
	mem.CreateContest(context.Background(), c)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contests/"+c.ID.String()+"/join", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/contests/"+c.ID.String()+"/join", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad header: got %d, want 401", rec.Code)
	}
}

func TestAuthedRoutes_PassUserThrough(t *testing.T) {
	srv, mem := newTestServer()
	defer srv.Shutdown(context.Background())
	router := srv.Router()

	ctx := context.Background()
	c := testutil.NewContest(time.Now().UTC())
	mem.CreateContest(ctx, c)
	userID := uuid.New()
	mem.CreditWallet(ctx, userID, 2*c.EntryFee)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contests/"+c.ID.String()+"/join", nil)
	req.Header.Set("X-User-ID", userID.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("join: got %d, body %s", rec.Code, rec.Body.String())
	}

	stored, _ := mem.GetContest(ctx, c.ID)
	if stored.Participant(userID) == nil {
		t.Error("authenticated join should register the participant")
	}
}

// ============================================================================
// Test: shutdown
// ============================================================================

func TestShutdown_StopsBackgroundWorkers(t *testing.T) {
	srv, _ := newTestServer()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
