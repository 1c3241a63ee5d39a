package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/solarcapture/internal/contracts"
	"github.com/wonny/solarcapture/internal/zones"
	"github.com/wonny/solarcapture/pkg/logger"
	"github.com/wonny/solarcapture/pkg/redis"
)

// SummaryHandler serves the summary tables
// ⭐ SSOT: 요약 조회 API 핸들러는 이 구조체에서만
type SummaryHandler struct {
	store   contracts.MetricStore
	catalog *zones.Catalog
	cache   *redis.Cache
	ttl     time.Duration
	logger  *logger.Logger
}

// NewSummaryHandler creates a new summary handler. cache may be nil.
func NewSummaryHandler(store contracts.MetricStore, catalog *zones.Catalog, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		store:   store,
		catalog: catalog,
		cache:   cache,
		ttl:     ttl,
		logger:  log,
	}
}

// TotalRow is the cross-zone summary
type TotalRow struct {
	contracts.Metrics
}

// YearlyRow is one zone's yearly summary
type YearlyRow struct {
	contracts.YearlyMetric
	CountryName string `json:"country_name"`
}

// MonthlyRow is one zone's monthly summary
type MonthlyRow struct {
	contracts.MonthlyMetric
	CountryName string `json:"country_name"`
}

// DailyRow is one zone's daily summary
type DailyRow struct {
	contracts.DailyMetric
	CountryName string `json:"country_name"`
}

// cached serves key from the cache or loads and stores it
func (h *SummaryHandler) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	if h.cache == nil {
		v, err := load()
		if err != nil {
			return err
		}
		return assign(dest, v)
	}
	return h.cache.GetOrSet(ctx, key, dest, h.ttl, load)
}

// GetTotal returns the single total row, zeros before the first rollup
// GET /api/summary/total
func (h *SummaryHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	var out TotalRow
	err := h.cached(r.Context(), redis.TotalKey(), &out, func() (interface{}, error) {
		t, err := h.store.Total(r.Context())
		if errors.Is(err, contracts.ErrNotFound) {
			return TotalRow{}, nil
		}
		if err != nil {
			return nil, err
		}
		return TotalRow{Metrics: t.Metrics}, nil
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get total summary")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve total summary")
		return
	}

	respondJSON(w, http.StatusOK, out)
}

// GetYearly returns every zone's yearly row
// GET /api/summary/yearly
func (h *SummaryHandler) GetYearly(w http.ResponseWriter, r *http.Request) {
	out := []YearlyRow{}
	err := h.cached(r.Context(), redis.YearlyKey(), &out, func() (interface{}, error) {
		rows, err := h.store.YearlyMetrics(r.Context())
		if err != nil {
			return nil, err
		}
		res := make([]YearlyRow, 0, len(rows))
		for _, y := range rows {
			res = append(res, YearlyRow{YearlyMetric: y, CountryName: h.catalog.DisplayName(y.ZoneID)})
		}
		return res, nil
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get yearly summary")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve yearly summary")
		return
	}

	respondList(w, out)
}

// GetMonthly returns monthly rows, optionally for one zone
// GET /api/summary/monthly?country=
func (h *SummaryHandler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	zone := h.resolveZone(r.URL.Query().Get("country"))

	var zoneFilter []string
	if zone != "" {
		zoneFilter = []string{zone}
	}

	out := []MonthlyRow{}
	err := h.cached(r.Context(), redis.MonthlyKey(zone), &out, func() (interface{}, error) {
		rows, err := h.store.MonthlyMetrics(r.Context(), zoneFilter)
		if err != nil {
			return nil, err
		}
		res := make([]MonthlyRow, 0, len(rows))
		for _, m := range rows {
			res = append(res, MonthlyRow{MonthlyMetric: m, CountryName: h.catalog.DisplayName(m.ZoneID)})
		}
		return res, nil
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get monthly summary")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve monthly summary")
		return
	}

	respondList(w, out)
}

// GetDaily returns daily rows, optionally for one zone and month
// GET /api/summary/daily?country=&month=
func (h *SummaryHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	zone := h.resolveZone(q.Get("country"))

	month := 0
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			respondError(w, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		month = m
	}

	out := []DailyRow{}
	err := h.cached(r.Context(), redis.DailyKey(zone, month), &out, func() (interface{}, error) {
		rows, err := h.store.DailyMetrics(r.Context(), contracts.DailyFilter{ZoneID: zone, Month: month})
		if err != nil {
			return nil, err
		}
		res := make([]DailyRow, 0, len(rows))
		for _, d := range rows {
			res = append(res, DailyRow{DailyMetric: d, CountryName: h.catalog.DisplayName(d.ZoneID)})
		}
		return res, nil
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get daily summary")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve daily summary")
		return
	}

	respondList(w, out)
}

// resolveZone maps an EIC or code to the zone code; unknown ids pass through
func (h *SummaryHandler) resolveZone(id string) string {
	if id == "" {
		return ""
	}
	if z, ok := h.catalog.Lookup(id); ok {
		return z.Code
	}
	return id
}
