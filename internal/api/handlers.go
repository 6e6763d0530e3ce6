package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vibetrading/sim-backend/internal/runs"
	"github.com/vibetrading/sim-backend/pkg/types"
	"github.com/vibetrading/sim-backend/pkg/utils"
	"go.uber.org/zap"
)

// createRunRequest is the inbound boundary contract.
type createRunRequest struct {
	Prompt                   string  `json:"prompt"`
	Symbol                   string  `json:"symbol,omitempty"`
	StartDate                string  `json:"startDate"`
	EndDate                  string  `json:"endDate"`
	Seed                     string  `json:"seed,omitempty"`
	Mode                     string  `json:"mode,omitempty"`
	InitialCapital           float64 `json:"initialCapital,omitempty"`
	TransactionCostsEnabled  bool    `json:"transactionCostsEnabled,omitempty"`
	MaxDrawdownFilterEnabled bool    `json:"maxDrawdownFilterEnabled,omitempty"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := types.DefaultBacktestConfig()
	cfg.Symbol = req.Symbol
	cfg.Seed = req.Seed
	cfg.Mode = types.DeployMode(req.Mode)
	cfg.TransactionCosts = req.TransactionCostsEnabled
	cfg.MaxDrawdownFilter = req.MaxDrawdownFilterEnabled
	if req.InitialCapital > 0 {
		cfg.InitialCapital = req.InitialCapital
	}
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid startDate, want YYYY-MM-DD")
			return
		}
		cfg.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid endDate, want YYYY-MM-DD")
			return
		}
		cfg.EndDate = t
	}

	runID, err := s.registry.CreateRun(req.Prompt, cfg)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	s.metrics.RunCreated()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func (s *Server) handleGetRunStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.registry.GetRunStatus(mux.Vars(r)["id"])
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetRunReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.registry.GetRunReport(mux.Vars(r)["id"])
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		s.writeTradesCSV(w, report.Trades)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs": s.registry.History(),
	})
}

type deployRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleDeployRun(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// An empty mode falls back to the mode recorded at run creation.
	mode := types.DeployMode(req.Mode)
	if mode != "" && mode != types.DeployModePaper && mode != types.DeployModeLive {
		s.writeError(w, http.StatusBadRequest, "mode must be paper or live")
		return
	}

	result, err := s.registry.Deploy(mux.Vars(r)["id"], mode)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// writeTradesCSV renders the trades export artifact. Monetary values are
// rounded here, at the presentation boundary.
func (s *Server) writeTradesCSV(w http.ResponseWriter, trades []types.Trade) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"id", "decision_time", "fill_time", "symbol", "side", "quantity", "price", "pnl", "pnl_pct", "reason"})
	for _, t := range trades {
		pnl, pnlPct := "", ""
		if t.PnL != nil {
			pnl = utils.FormatMoney(*t.PnL)
		}
		if t.PnLPct != nil {
			pnlPct = utils.FormatPct(*t.PnLPct)
		}
		cw.Write([]string{
			t.ID,
			t.DecisionTime.Format("2006-01-02"),
			t.FillTime.Format("2006-01-02"),
			t.Symbol,
			string(t.Side),
			utils.FormatQty(t.Quantity),
			utils.FormatMoney(t.Price),
			pnl,
			pnlPct,
			t.Reason,
		})
	}
}

// writeRegistryError maps the registry's error taxonomy onto HTTP codes.
func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runs.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, runs.ErrNotReady):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, runs.ErrInvalidState):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, runs.ErrGeneration):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Unexpected registry error", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
