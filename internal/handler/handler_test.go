package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/labor-planner/backend/internal/forecast"
)

const testSecret = "test-secret"

// newTestHandler 不连接数据库和消息队列，redis 指向一个不存在的地址，只能测试无状态的接口
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.MaxUploadSize = 1 << 20
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 1
	cfg.Redis.OperationTimeout = 1
	cfg.Forecast.DefaultHorizon = 3
	cfg.Forecast.MaxHorizon = 30
	cfg.Forecast.CacheExpiration = 60

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := allocation.New(nil)
	require.NoError(t, err)
	forecaster, err := forecast.New(0.8)
	require.NoError(t, err)

	h, err := NewHandler(cfg, nil, nil, rdb, engine, forecaster)
	require.NoError(t, err)
	h.RegisterRoutes()

	return h
}

func signedToken(t *testing.T, h *Handler, userID int64, role domain.Role) string {
	t.Helper()

	ss, expiration, err := h.issueToken(&domain.User{ID: userID, Role: role})
	require.NoError(t, err)
	require.True(t, expiration.After(time.Now()))
	return ss
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, h *Handler, method, path string, body any, authenticated bool) testResponse {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if authenticated {
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: signedToken(t, h, 1, domain.RolePlanner)})
	}
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	resp := testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthRequired(t *testing.T) {
	h := newTestHandler(t)

	resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{}, false)
	require.False(t, resp.Success)
	require.Equal(t, "用户未登录", resp.Message)

	req := httptest.NewRequest(http.MethodPost, "/allocations", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "not-a-token"})
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	require.Contains(t, rec.Body.String(), "无效的令牌")
}

func TestCreateAllocation(t *testing.T) {
	h := newTestHandler(t)

	t.Run("default ratios", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": 50,
			"periods": []map[string]any{
				{"date": "2024-01-01", "workersNeeded": 52},
				{"date": "2024-01-02", "workersNeeded": 45},
			},
		}, true)
		require.True(t, resp.Success, resp.Message)

		data := allocationResponse{}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		require.Equal(t, []string{"packing", "picking", "receiving"}, data.Functions)
		require.Len(t, data.Records, 2)

		got := []map[string]int{data.Records[0].Workers, data.Records[1].Workers}
		want := []map[string]int{
			{"picking": 26, "packing": 15, "receiving": 10},
			{"picking": 22, "packing": 13, "receiving": 9},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("workers mismatch (-want +got):\n%s", diff)
		}

		require.True(t, data.Records[0].OvertimeRisk)
		require.Equal(t, 2, data.Records[0].Shortage)
		require.False(t, data.Records[1].OvertimeRisk)
		require.Equal(t, domain.PlanSummary{
			AvgWorkersNeeded:  48.5,
			PeakWorkersNeeded: 52,
			OvertimeRiskDays:  1,
			TotalShortage:     2,
		}, data.Summary)
	})

	t.Run("custom ratios", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": 10,
			"ratios":   map[string]float64{"loading": 0.7, "sorting": 0.3},
			"periods":  []map[string]any{{"date": "2024-01-01", "workersNeeded": 10}},
		}, true)
		require.True(t, resp.Success, resp.Message)

		data := allocationResponse{}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		require.Equal(t, map[string]int{"loading": 7, "sorting": 3}, data.Records[0].Workers)
	})

	t.Run("missing workers needed", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": 50,
			"periods":  []map[string]any{{"date": "2024-03-05"}},
		}, true)
		require.False(t, resp.Success)
		require.Contains(t, resp.Message, "2024-03-05")
	})

	t.Run("invalid ratios", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": 50,
			"ratios":   map[string]float64{"picking": 0.5, "packing": 0.2},
			"periods":  []map[string]any{{"date": "2024-01-01", "workersNeeded": 10}},
		}, true)
		require.False(t, resp.Success)
		require.Contains(t, resp.Message, "分配比例")
	})

	t.Run("demand too large for whole workers", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": 50,
			"periods":  []map[string]any{{"date": "2024-04-01", "workersNeeded": 1e19}},
		}, true)
		require.False(t, resp.Success)
		require.Contains(t, resp.Message, "2024-04-01")
	})

	t.Run("negative capacity", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": -1,
			"periods":  []map[string]any{},
		}, true)
		require.False(t, resp.Success)
	})

	t.Run("unknown field", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/allocations", map[string]any{
			"capacity": 50,
			"periods":  []map[string]any{},
			"foo":      1,
		}, true)
		require.False(t, resp.Success)
		require.Equal(t, "请求体格式错误", resp.Message)
	})
}

func TestCreateForecast(t *testing.T) {
	h := newTestHandler(t)

	history := []map[string]any{}
	for i := 0; i < 5; i++ {
		history = append(history, map[string]any{
			"date":          time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
			"workersNeeded": 40 + 2*i,
		})
	}

	t.Run("default horizon", func(t *testing.T) {
		// redis 不可用时仍然可以预测
		resp := doRequest(t, h, http.MethodPost, "/forecasts", map[string]any{"history": history}, true)
		require.True(t, resp.Success, resp.Message)

		periods := []domain.ForecastPeriod{}
		require.NoError(t, json.Unmarshal(resp.Data, &periods))
		require.Len(t, periods, 3)
		require.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), periods[0].Date)
		require.InDelta(t, 50, *periods[0].WorkersNeeded, 1e-6)
	})

	t.Run("horizon too large", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/forecasts", map[string]any{"history": history, "horizon": 31}, true)
		require.False(t, resp.Success)
	})

	t.Run("not enough history", func(t *testing.T) {
		resp := doRequest(t, h, http.MethodPost, "/forecasts", map[string]any{"history": history[:1]}, true)
		require.False(t, resp.Success)
	})
}

func TestCanModify(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		userID  int64
		ownerID int64
		want    bool
	}{
		{"planner owns the data", domain.RolePlanner, 3, 3, true},
		{"planner does not own the data", domain.RolePlanner, 3, 4, false},
		{"admin", domain.RoleAdmin, 1, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, canModify(tt.role, tt.userID, tt.ownerID))
		})
	}
}

func TestRequireOwnerOrAdmin(t *testing.T) {
	h := newTestHandler(t)

	newRequest := func(role domain.Role, sub string) *http.Request {
		req := httptest.NewRequest(http.MethodDelete, "/labor-histories/1", nil)
		ctx := context.WithValue(req.Context(), RoleCtxKey, string(role))
		ctx = context.WithValue(ctx, SubCtxKey, sub)
		return req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	require.True(t, h.requireOwnerOrAdmin(rec, newRequest(domain.RolePlanner, "7"), 7))
	require.Zero(t, rec.Body.Len())

	rec = httptest.NewRecorder()
	require.False(t, h.requireOwnerOrAdmin(rec, newRequest(domain.RolePlanner, "7"), 8))
	require.Contains(t, rec.Body.String(), "只有创建者或管理员可以执行此操作")

	rec = httptest.NewRecorder()
	require.True(t, h.requireOwnerOrAdmin(rec, newRequest(domain.RoleAdmin, "1"), 8))
}
