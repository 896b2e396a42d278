package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
)

// --- Request/Response types ---

// CreateContestRequest is the JSON body for POST /contests.
type CreateContestRequest struct {
	Name               string    `json:"name"`
	RegistrationStart  time.Time `json:"registration_start"`
	RegistrationEnd    time.Time `json:"registration_end"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	MinParticipants    int       `json:"min_participants"`
	MaxParticipants    int       `json:"max_participants"`
	EntryFee           int64     `json:"entry_fee"`
	PrizePool          int64     `json:"prize_pool"`
	PlatformFeePercent int64     `json:"platform_fee_percent"`
	VirtualMoney       int64     `json:"virtual_money_amount"`

	PrizeDistribution []struct {
		Rank    int   `json:"rank"`
		Percent int64 `json:"percent"`
	} `json:"prize_distribution"`

	Rules struct {
		MaxTradesPerParticipant int   `json:"max_trades_per_participant"`
		MaxOpenPositions        int   `json:"max_open_positions"`
		MaxPositionSizePercent  int64 `json:"max_position_size_percent"`
	} `json:"rules"`
}

// PlaceTradeRequest is the JSON body for POST /contests/{id}/trades.
type PlaceTradeRequest struct {
	Symbol    string `json:"symbol"`
	Direction string `json:"direction"`
	Quantity  int64  `json:"quantity"`
}

// WalletResponse reports the caller's external wallet balance.
type WalletResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

// --- Handlers ---

func (s *Server) createContest(w http.ResponseWriter, r *http.Request) {
	var req CreateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	c := &contest.Contest{
		Name: req.Name,
		Window: contest.TimeWindow{
			RegistrationStart: req.RegistrationStart,
			RegistrationEnd:   req.RegistrationEnd,
			Start:             req.Start,
			End:               req.End,
		},
		Capacity: contest.Capacity{
			MinParticipants: req.MinParticipants,
			MaxParticipants: req.MaxParticipants,
		},
		EntryFee:           req.EntryFee,
		PrizePool:          req.PrizePool,
		PlatformFeePercent: req.PlatformFeePercent,
		VirtualMoneyAmount: req.VirtualMoney,
		Rules: contest.TradingRules{
			MaxTradesPerParticipant: req.Rules.MaxTradesPerParticipant,
			MaxOpenPositions:        req.Rules.MaxOpenPositions,
			MaxPositionSizePercent:  req.Rules.MaxPositionSizePercent,
		},
	}
	for _, tier := range req.PrizeDistribution {
		c.PrizeDistribution = append(c.PrizeDistribution, contest.PrizeTier{
			Rank:    tier.Rank,
			Percent: tier.Percent,
		})
	}

	if err := s.engine.CreateContest(r.Context(), c, time.Now().UTC()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listContests(w http.ResponseWriter, r *http.Request) {
	var statuses []contest.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := contest.ParseStatus(raw)
		if !ok {
			writeError(w, "unknown status "+raw, http.StatusBadRequest)
			return
		}
		statuses = append(statuses, st)
	}

	contests, err := s.engine.ListContests(r.Context(), statuses...)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if contests == nil {
		contests = []*contest.Contest{}
	}
	writeJSON(w, http.StatusOK, contests)
}

func (s *Server) getContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	c, err := s.engine.GetContest(r.Context(), contestID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) publishContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	if err := s.engine.Publish(r.Context(), contestID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": contest.StatusUpcoming.String()})
}

func (s *Server) cancelContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	if err := s.engine.Cancel(r.Context(), contestID, time.Now().UTC()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": contest.StatusCancelled.String()})
}

// settleContest retries settlement for a contest whose automatic run
// failed. Idempotent: re-settling a COMPLETED contest is a no-op.
func (s *Server) settleContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	if err := s.engine.Settle(r.Context(), contestID, time.Now().UTC()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": contest.StatusCompleted.String()})
}

func (s *Server) joinContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}
	userID, _ := userIDFrom(r.Context())

	if err := s.engine.JoinContest(r.Context(), contestID, userID, time.Now().UTC()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) leaveContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}
	userID, _ := userIDFrom(r.Context())

	if err := s.engine.LeaveContest(r.Context(), contestID, userID, time.Now().UTC()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (s *Server) placeTrade(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}
	userID, _ := userIDFrom(r.Context())

	var req PlaceTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	direction, valid := ledger.ParseDirection(req.Direction)
	if !valid {
		writeError(w, "direction must be BUY or SELL", http.StatusBadRequest)
		return
	}

	trade, err := s.engine.PlaceTrade(r.Context(), contestID, userID, req.Symbol, direction, req.Quantity, time.Now().UTC())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) closeTrade(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}
	tradeID, ok := pathUUID(w, r, "tradeID")
	if !ok {
		return
	}
	userID, _ := userIDFrom(r.Context())

	trade, err := s.engine.CloseTrade(r.Context(), contestID, userID, tradeID, time.Now().UTC())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) listMyTrades(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}
	userID, _ := userIDFrom(r.Context())

	trades, err := s.engine.ParticipantTrades(r.Context(), contestID, userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if trades == nil {
		trades = []*ledger.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	entries, err := s.engine.Leaderboard(r.Context(), contestID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	stats, err := s.engine.Stats(r.Context(), contestID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	balance, err := s.wallets.Balance(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WalletResponse{UserID: userID, Balance: balance})
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
