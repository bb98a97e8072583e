package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/forecast"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/utils"
)

type laborHistoryPointRequest struct {
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	WorkersNeeded *float64 `json:"workersNeeded" validate:"required,min=0"`
}

func parseHistoryPoints(req []laborHistoryPointRequest) ([]domain.LaborHistoryPoint, error) {
	points := make([]domain.LaborHistoryPoint, 0, len(req))
	for _, p := range req {
		date, err := utils.ParseDate(p.Date)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.LaborHistoryPoint{
			Date:          date,
			WorkersNeeded: *p.WorkersNeeded,
		})
	}
	return points, nil
}

func (h *Handler) CreateForecast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		History []laborHistoryPointRequest `json:"history" validate:"required,min=2,dive"`
		Horizon int                        `json:"horizon" validate:"omitempty,min=1"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	horizon := req.Horizon
	if horizon == 0 {
		horizon = h.config.Forecast.DefaultHorizon
	}
	if err := utils.ValidateForecastHorizon(horizon, h.config.Forecast.MaxHorizon); err != nil {
		h.badRequest(w, r, err)
		return
	}

	points, err := parseHistoryPoints(req.History)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateLaborHistoryPoints(points); err != nil {
		h.badRequest(w, r, err)
		return
	}

	periods, err := h.forecastWithCache(r.Context(), points, horizon)
	if err != nil {
		h.forecastError(w, r, err)
		return
	}

	h.successResponse(w, r, "预测成功", periods)
}

/**
 * 预测结果只取决于历史数据、预测天数和置信区间宽度，因此可以缓存到 redis 中
 * redis 出错时只记录日志，不影响预测本身
 */
func (h *Handler) forecastWithCache(ctx context.Context, points []domain.LaborHistoryPoint, horizon int) ([]domain.ForecastPeriod, error) {
	key, err := h.forecastCacheKey(points, horizon)
	if err != nil {
		return nil, err
	}

	cacheCtx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	cached, err := h.redisClient.Get(cacheCtx, key).Bytes()
	switch {
	case err == nil:
		periods := []domain.ForecastPeriod{}
		if err := json.Unmarshal(cached, &periods); err == nil {
			return periods, nil
		}
		slog.Warn("预测缓存已损坏", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("无法读取预测缓存", "key", key, "error", err)
	}

	periods, err := h.forecaster.Forecast(points, horizon)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(periods)
	if err != nil {
		return nil, err
	}
	expiration := time.Duration(h.config.Forecast.CacheExpiration) * time.Second
	if err := h.redisClient.Set(cacheCtx, key, data, expiration).Err(); err != nil {
		slog.Warn("无法写入预测缓存", "key", key, "error", err)
	}

	return periods, nil
}

func (h *Handler) forecastCacheKey(points []domain.LaborHistoryPoint, horizon int) (string, error) {
	data, err := json.Marshal(struct {
		Points        []domain.LaborHistoryPoint `json:"points"`
		Horizon       int                        `json:"horizon"`
		IntervalWidth float64                    `json:"intervalWidth"`
	}{points, horizon, h.forecaster.IntervalWidth()})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return fmt.Sprintf("forecast_%s", hex.EncodeToString(sum[:])), nil
}

func (h *Handler) forecastError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, forecast.ErrNotEnoughHistory), errors.Is(err, forecast.ErrInvalidHorizon):
		h.errorResponse(w, r, err.Error())
	default:
		h.internalServerError(w, r, err)
	}
}
