package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"algo-core/internal/market"
	"algo-core/internal/strategy"
	"algo-core/internal/trading"
	"algo-core/pkg/db"
	"algo-core/pkg/i18n"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createStrategyRequest struct {
	Name      string         `json:"name" binding:"required,min=1,max=120"`
	Symbol    string         `json:"symbol" binding:"required,min=1"`
	Kind      string         `json:"kind" binding:"required,min=1"`
	Timeframe string         `json:"timeframe"`
	Lookback  int            `json:"lookback"`
	Params    map[string]any `json:"params"`
}

type updateStrategyRequest struct {
	Name      string         `json:"name"`
	Symbol    string         `json:"symbol"`
	Kind      string         `json:"kind"`
	Timeframe string         `json:"timeframe"`
	Lookback  int            `json:"lookback"`
	Params    map[string]any `json:"params"`
}

type listSignalsQuery struct {
	StrategyID string `form:"strategy_id"`
	Limit      int    `form:"limit"`
}

type listTradesQuery struct {
	Limit int `form:"limit"`
}

type startTradingRequest struct {
	PositionSize    float64 `json:"position_size"`
	IntervalSeconds int     `json:"interval_seconds"`
	HistoryLookback int     `json:"history_lookback"`
}

func (q *listSignalsQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
}

func (q *listTradesQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// marshalParams validates the kind-specific parameters and returns
// their canonical JSON form. A nil map means "use the defaults".
func marshalParams(kind string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	if err := strategy.ValidateParams(kind, string(raw)); err != nil {
		return "", err
	}
	return string(raw), nil
}

func strategyResponse(row db.Strategy) gin.H {
	var params map[string]any
	_ = json.Unmarshal([]byte(row.Params), &params)

	return gin.H{
		"id":         row.ID,
		"name":       row.Name,
		"symbol":     row.Symbol,
		"kind":       row.Kind,
		"params":     params,
		"timeframe":  row.Timeframe,
		"lookback":   row.Lookback,
		"is_active":  row.IsActive,
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}

// createStrategy registers a new strategy configuration. It is created
// inactive; activation is a separate call.
func (s *Server) createStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if req.Timeframe == "" {
		req.Timeframe = market.Timeframe1Day
	}
	if !market.ValidTimeframe(req.Timeframe) {
		respondError(c, http.StatusBadRequest, "INVALID_TIMEFRAME", "timeframe must be one of 1Min, 5Min, 15Min, 1Hour, 1Day")
		return
	}
	if req.Lookback < 0 {
		respondError(c, http.StatusBadRequest, "INVALID_LOOKBACK", "lookback must be >= 0")
		return
	}

	paramsJSON, err := marshalParams(req.Kind, req.Params)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PARAMETERS", err.Error())
		return
	}

	ctx := c.Request.Context()
	if existing, err := s.DB.GetStrategyByName(ctx, req.Name); err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	} else if existing != nil {
		respondError(c, http.StatusConflict, "NAME_TAKEN", "a strategy with this name already exists")
		return
	}

	row := db.Strategy{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Kind:      req.Kind,
		Params:    paramsJSON,
		Timeframe: req.Timeframe,
		Lookback:  req.Lookback,
	}
	if err := s.DB.CreateStrategy(ctx, row); err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	created, err := s.DB.GetStrategyByID(ctx, row.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusCreated, strategyResponse(*created))
}

// listStrategies returns all configured strategies, newest first.
func (s *Server) listStrategies(c *gin.Context) {
	rows, err := s.DB.ListStrategies(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, strategyResponse(row))
	}
	c.JSON(http.StatusOK, out)
}

// updateStrategy rewrites a strategy configuration. Omitted fields keep
// their current value; params, when present, are validated against the
// resulting kind.
func (s *Server) updateStrategy(c *gin.Context) {
	id := c.Param("id")

	var req updateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	ctx := c.Request.Context()
	row, err := s.DB.GetStrategyByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		}
		return
	}

	if req.Name != "" {
		row.Name = req.Name
	}
	if req.Symbol != "" {
		row.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	}
	if req.Kind != "" {
		row.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	}
	if req.Timeframe != "" {
		if !market.ValidTimeframe(req.Timeframe) {
			respondError(c, http.StatusBadRequest, "INVALID_TIMEFRAME", "timeframe must be one of 1Min, 5Min, 15Min, 1Hour, 1Day")
			return
		}
		row.Timeframe = req.Timeframe
	}
	if req.Lookback > 0 {
		row.Lookback = req.Lookback
	}

	if req.Params != nil {
		paramsJSON, err := marshalParams(row.Kind, req.Params)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_PARAMETERS", err.Error())
			return
		}
		row.Params = paramsJSON
	} else if req.Kind != "" {
		// Kind changed without new params: the stored params must still
		// parse under the new kind.
		if err := strategy.ValidateParams(row.Kind, row.Params); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_PARAMETERS", err.Error())
			return
		}
	}

	if err := s.DB.UpdateStrategy(ctx, *row); err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	updated, err := s.DB.GetStrategyByID(ctx, id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, strategyResponse(*updated))
}

// deleteStrategy removes a strategy and its recorded signals.
func (s *Server) deleteStrategy(c *gin.Context) {
	if err := s.DB.DeleteStrategy(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// activateStrategy re-validates the stored parameters before the flag
// flips, so a row edited outside the API cannot enter the loop with a
// configuration the generators would reject every cycle.
func (s *Server) activateStrategy(c *gin.Context) {
	row, err := s.DB.GetStrategyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		}
		return
	}
	if err := strategy.ValidateParams(row.Kind, row.Params); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PARAMETERS", err.Error())
		return
	}
	s.setStrategyActive(c, true, "activated")
}

func (s *Server) deactivateStrategy(c *gin.Context) {
	s.setStrategyActive(c, false, "deactivated")
}

// setStrategyActive flips the active flag. The running loop picks up
// the change on its next cycle; no restart needed.
func (s *Server) setStrategyActive(c *gin.Context, active bool, status string) {
	if err := s.DB.SetStrategyActive(c.Request.Context(), c.Param("id"), active); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// listSignals returns recent signals, optionally filtered by strategy.
func (s *Server) listSignals(c *gin.Context) {
	var q listSignalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}
	q.normalize()

	rows, err := s.DB.ListSignals(c.Request.Context(), q.StrategyID, q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		var evidence map[string]float64
		_ = json.Unmarshal([]byte(row.Evidence), &evidence)
		out = append(out, gin.H{
			"id":          row.ID,
			"strategy_id": row.StrategyID,
			"symbol":      row.Symbol,
			"kind":        row.Kind,
			"confidence":  row.Confidence,
			"evidence":    evidence,
			"created_at":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// listTrades returns recent trades, newest first.
func (s *Server) listTrades(c *gin.Context) {
	var q listTradesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}
	q.normalize()

	rows, err := s.DB.ListTrades(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"order_id":    row.OrderID,
			"strategy_id": row.StrategyID,
			"symbol":      row.Symbol,
			"side":        row.Side,
			"qty":         row.Qty,
			"price":       row.Price,
			"status":      row.Status,
			"created_at":  row.CreatedAt,
			"filled_at":   row.FilledAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// getPositions returns the loop's position snapshot. Values may be up
// to one cycle stale; an idle loop reports none.
func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, s.Trading.Status().Positions)
}

// getAccount proxies the broker account summary.
func (s *Server) getAccount(c *gin.Context) {
	if s.Account == nil {
		respondError(c, http.StatusServiceUnavailable, "BROKER_UNAVAILABLE", "broker not configured")
		return
	}
	acct, err := s.Account.GetAccount(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "BROKER_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, acct)
}

// startTrading starts the control loop, optionally reconfiguring it
// first. Overrides only apply while the loop is idle.
func (s *Server) startTrading(c *gin.Context) {
	var req startTradingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
			return
		}
	}

	st := s.Trading.Status()
	if st.State != trading.StateIdle {
		respondError(c, http.StatusConflict, "ALREADY_RUNNING", "trading loop is "+string(st.State))
		return
	}

	if req.PositionSize != 0 || req.IntervalSeconds != 0 || req.HistoryLookback != 0 {
		cfg := trading.Config{
			Interval:        time.Duration(st.Config.IntervalSeconds) * time.Second,
			PositionSize:    st.Config.PositionSize,
			HistoryLookback: st.Config.HistoryLookback,
		}
		if req.PositionSize != 0 {
			cfg.PositionSize = req.PositionSize
		}
		if req.IntervalSeconds != 0 {
			cfg.Interval = time.Duration(req.IntervalSeconds) * time.Second
		}
		if req.HistoryLookback != 0 {
			cfg.HistoryLookback = req.HistoryLookback
		}
		if err := s.Trading.Reconfigure(cfg); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
			return
		}
	}

	if err := s.Trading.Start(); err != nil {
		respondError(c, http.StatusConflict, "ALREADY_RUNNING", err.Error())
		return
	}
	c.JSON(http.StatusOK, s.Trading.Status())
}

// stopTrading stops the control loop and waits for it to wind down.
func (s *Server) stopTrading(c *gin.Context) {
	if err := s.Trading.Stop(c.Request.Context()); err != nil {
		respondError(c, http.StatusRequestTimeout, "STOP_TIMEOUT", err.Error())
		return
	}
	c.JSON(http.StatusOK, s.Trading.Status())
}

// getTradingStatus returns the loop status snapshot.
func (s *Server) getTradingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Trading.Status())
}

// getSystemStatus exposes runtime mode/venue for the dashboard.
func (s *Server) getSystemStatus(c *gin.Context) {
	mode := "LIVE"
	if s.Meta.Paper {
		mode = "PAPER"
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":        mode,
		"paper":       s.Meta.Paper,
		"data_feed":   s.Meta.DataFeed,
		"version":     s.Meta.Version,
		"instance_id": s.Meta.InstanceID,
		"language":    i18n.GetLanguage(),
		"server_time": time.Now().UTC(),
	})
}

// getMetrics returns system performance metrics.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// createBackup snapshots the database and prunes old snapshots.
func (s *Server) createBackup(c *gin.Context) {
	path, err := s.DB.Backup(c.Request.Context(), s.Backups.Dir)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "BACKUP_FAILED", err.Error())
		return
	}
	pruned, err := db.PruneBackups(s.Backups.Dir, s.Backups.Keep)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "PRUNE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"path":   path,
		"pruned": pruned,
	})
}

// listBackups lists available database snapshots, newest first.
func (s *Server) listBackups(c *gin.Context) {
	backups, err := db.ListBackups(s.Backups.Dir)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "BACKUP_LIST_FAILED", err.Error())
		return
	}
	if backups == nil {
		backups = []db.BackupInfo{}
	}
	c.JSON(http.StatusOK, backups)
}
