package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authrepo "github.com/smallbiznis/berair/internal/auth/repository"
	authservice "github.com/smallbiznis/berair/internal/auth/service"
	"github.com/smallbiznis/berair/internal/authorization"
	billingservice "github.com/smallbiznis/berair/internal/billing/service"
	"github.com/smallbiznis/berair/internal/clock"
	"github.com/smallbiznis/berair/internal/config"
	meterrepo "github.com/smallbiznis/berair/internal/meter/repository"
	meterservice "github.com/smallbiznis/berair/internal/meter/service"
	"github.com/smallbiznis/berair/internal/migration"
	"github.com/smallbiznis/berair/internal/observability"
	"github.com/smallbiznis/berair/internal/providers/pdf"
	reportrepo "github.com/smallbiznis/berair/internal/report/repository"
	reportservice "github.com/smallbiznis/berair/internal/report/service"
	settingrepo "github.com/smallbiznis/berair/internal/setting/repository"
	settingservice "github.com/smallbiznis/berair/internal/setting/service"
	userdomain "github.com/smallbiznis/berair/internal/user/domain"
	userrepo "github.com/smallbiznis/berair/internal/user/repository"
	userservice "github.com/smallbiznis/berair/internal/user/service"
	"github.com/smallbiznis/berair/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "rahasia123"

type testEnv struct {
	engine    *gin.Engine
	clock     *clock.FakeClock
	admin     *userdomain.Response
	officer   *userdomain.Response
	household *userdomain.Response
	neighbour *userdomain.Response
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error errorPayload    `json:"error"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := config.Config{
		AppName:         "berair",
		BillingTimezone: "UTC",
		AuthJWTSecret:   "server-test-secret",
		AuthJWTIssuer:   "berair",
		AuthTokenTTL:    time.Hour,
	}
	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	fake := clock.NewFakeClock(time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC))

	users := userrepo.Provide()
	meters := meterrepo.Provide()

	userSvc := userservice.New(userservice.Params{DB: conn, Log: log, GenID: node, Repo: users, Clock: fake})
	settingSvc := settingservice.New(settingservice.Params{
		DB: conn, Log: log, GenID: node, Repo: settingrepo.Provide(), Billing: holder, Clock: fake,
	})
	validator := meterservice.NewValidator(meterservice.ValidatorParams{
		DB: conn, Repo: meters, Clock: fake, Config: cfg,
	})
	meterSvc := meterservice.New(meterservice.Params{
		DB: conn, Log: log, GenID: node, Repo: meters, UserRepo: users,
		Validator: validator, Clock: fake, Config: cfg,
	})
	billingSvc := billingservice.New(billingservice.Params{
		DB: conn, Log: log, Repo: meters, UserRepo: users,
		Settings: settingSvc, Billing: holder, Clock: fake,
	})
	reportSvc := reportservice.New(reportservice.Params{
		DB: conn, Log: log, GenID: node, Repo: reportrepo.Provide(),
		MeterRepo: meters, UserRepo: users, Settings: settingSvc,
		Bills: billingSvc, Billing: holder, Clock: fake, Config: cfg,
	})

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	tokens, err := authservice.NewTokenManager(cfg, log)
	require.NoError(t, err)
	authSvc := authservice.New(authservice.Params{
		DB: conn, Log: log, UserRepo: users, Tokens: tokens,
		Revocations: authrepo.ProvideRevocations(nil), Clock: fake,
	})

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Log:        log,
		Authsvc:    authSvc,
		AuthzSvc:   authzSvc,
		UserSvc:    userSvc,
		MeterSvc:   meterSvc,
		BillingSvc: billingSvc,
		SettingSvc: settingSvc,
		ReportSvc:  reportSvc,
		PDF:        pdf.New(cfg, log),
	})

	create := func(nik, name, region string, role userdomain.Role) *userdomain.Response {
		resp, err := userSvc.Create(context.Background(), userdomain.CreateRequest{
			NIK:      nik,
			Name:     name,
			Region:   region,
			Address:  "Jl. Kenanga No. 7",
			Role:     role,
			Password: testPassword,
		})
		require.NoError(t, err)
		return resp
	}

	return &testEnv{
		engine:    engine,
		clock:     fake,
		admin:     create("3200000000000001", "Admin Pusat", "Pusat", userdomain.RoleAdmin),
		officer:   create("3200000000000002", "Petugas Satu", "Region 1", userdomain.RoleOfficer),
		household: create("3200000000000003", "Siti Aminah", "Region 1", userdomain.RoleUser),
		neighbour: create("3200000000000004", "Budi Santoso", "Region 2", userdomain.RoleUser),
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") != "application/pdf" && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (e *testEnv) login(t *testing.T, nik string) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{NIK: nik, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func (e *testEnv) createReading(t *testing.T, token, userID string, meterNow int64) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/readings", token, map[string]any{
		"user_id":   userID,
		"meter_now": meterNow,
	})
	var data map[string]any
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &data))
	}
	return rec, data
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/auth/login", "", LoginRequest{NIK: env.admin.NIK, Password: "salah-sekali"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", body.Error.Type)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, env.household.NIK)

	rec, body := env.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me userdomain.Response
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, env.household.ID, me.ID)
}

func TestHouseholdCannotCreateReading(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, env.household.NIK)

	rec, body := env.createReading(t, token, env.household.ID, 10)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, body)
}

func TestOfficerCreatesReadingOncePerMonth(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, env.officer.NIK)

	rec, data := env.createReading(t, token, env.household.ID, 60)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2025-04", data["period"])
	assert.EqualValues(t, 60, data["usage"])

	rec, body := env.do(t, http.MethodPost, "/api/readings", token, map[string]any{
		"user_id":   env.household.ID,
		"meter_now": 70,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body.Error.Type)
}

func TestCreateReadingRejectsNonIncreasingValue(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, env.officer.NIK)

	rec, body := env.do(t, http.MethodPost, "/api/readings", token, map[string]any{
		"user_id":      env.household.ID,
		"meter_now":    50,
		"meter_before": 50,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body.Error.Type)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "invalid_reading", body.Error.Errors[0].Code)
	assert.Equal(t, "meter_now", body.Error.Errors[0].Field)

	rec, _ = env.do(t, http.MethodPost, "/api/readings", token, map[string]any{
		"user_id": env.household.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReadingWithoutBeforeMustExceedLatest(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, env.officer.NIK)

	rec, _ := env.createReading(t, token, env.household.ID, 100)
	require.Equal(t, http.StatusCreated, rec.Code)

	env.clock.Advance(31 * 24 * time.Hour)
	token = env.login(t, env.officer.NIK)
	rec, body := env.do(t, http.MethodPost, "/api/readings", token, map[string]any{
		"user_id":   env.household.ID,
		"meter_now": 50,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "invalid_reading", body.Error.Errors[0].Code)

	rec, data := env.createReading(t, token, env.household.ID, 140)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 100, data["meter_before"])
	assert.EqualValues(t, 40, data["usage"])
}

func TestCorrectReadingIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	officer := env.login(t, env.officer.NIK)
	admin := env.login(t, env.admin.NIK)

	rec, data := env.createReading(t, officer, env.household.ID, 60)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := data["id"].(string)

	rec, _ = env.do(t, http.MethodPatch, "/api/readings/"+id, officer, map[string]any{"meter_now": 65})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodPatch, "/api/readings/"+id, admin, map[string]any{"meter_now": 65})
	require.Equal(t, http.StatusOK, rec.Code)
	var corrected map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &corrected))
	assert.EqualValues(t, 65, corrected["meter_now"])

	rec, _ = env.do(t, http.MethodPatch, "/api/readings/12345", admin, map[string]any{"meter_now": 65})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	officer := env.login(t, env.officer.NIK)
	admin := env.login(t, env.admin.NIK)

	rec, data := env.createReading(t, officer, env.household.ID, 60)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := data["id"].(string)

	rec, body := env.do(t, http.MethodGet, "/api/readings/"+id+"/bill", officer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stmt struct {
		Bill struct {
			Status string `json:"status"`
			Total  int64  `json:"total"`
		} `json:"bill"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &stmt))
	assert.Equal(t, "pending", stmt.Bill.Status)
	assert.Equal(t, int64(300000), stmt.Bill.Total)

	rec, _ = env.do(t, http.MethodGet, "/api/payments/"+id+"/receipt.pdf", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/payments", officer, map[string]any{"reading_id": id})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = env.do(t, http.MethodPut, "/api/payments", admin, map[string]any{"reading_id": id})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body.Data, &stmt))
	assert.Equal(t, "paid", stmt.Bill.Status)

	rec, _ = env.do(t, http.MethodGet, "/api/payments/"+id+"/receipt.pdf", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String()[:4])

	rec, _ = env.do(t, http.MethodGet, "/api/readings/"+id+"/invoice.pdf", officer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "WTR-")
}

func TestWaterPriceUpdateIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	officer := env.login(t, env.officer.NIK)
	admin := env.login(t, env.admin.NIK)

	rec, _ := env.do(t, http.MethodPut, "/api/water-price", officer, map[string]any{"value": "7000"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodPut, "/api/water-price", admin, map[string]any{"value": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_price", body.Error.Errors[0].Code)

	rec, _ = env.do(t, http.MethodPut, "/api/water-price", admin, map[string]any{"value": "7000"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/water-price", officer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var price struct {
		Value int64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &price))
	assert.Equal(t, int64(7000), price.Value)
}

func TestPublicCheckByNIK(t *testing.T) {
	env := newTestEnv(t)
	officer := env.login(t, env.officer.NIK)

	rec, _ := env.createReading(t, officer, env.household.ID, 42)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/readings/check?nik="+env.household.NIK, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var check struct {
		Readings []json.RawMessage `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &check))
	assert.Len(t, check.Readings, 1)

	rec, _ = env.do(t, http.MethodGet, "/api/readings/check?nik=9999999999999999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/readings/check", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHouseholdOnlySeesOwnReadings(t *testing.T) {
	env := newTestEnv(t)
	officer := env.login(t, env.officer.NIK)
	household := env.login(t, env.household.NIK)

	rec, _ := env.createReading(t, officer, env.neighbour.ID, 30)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/readings?user_id="+env.neighbour.ID, household, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var readings []json.RawMessage
	require.NoError(t, json.Unmarshal(body.Data, &readings))
	assert.Empty(t, readings)

	rec, body = env.do(t, http.MethodGet, "/api/readings?user_id="+env.neighbour.ID, officer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body.Data, &readings))
	assert.Len(t, readings, 1)
}

func TestReportsRequireStaffAndValidateMonth(t *testing.T) {
	env := newTestEnv(t)
	household := env.login(t, env.household.NIK)
	officer := env.login(t, env.officer.NIK)

	rec, _ := env.do(t, http.MethodGet, "/api/reports?month=4&year=2025", household, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/reports?month=13&year=2025", officer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_month", body.Error.Errors[0].Code)

	rec, _ = env.do(t, http.MethodGet, "/api/reports?month=4&year=2025&region=region", officer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/reports/dashboard", officer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/reports/summaries", officer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserManagement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, env.admin.NIK)
	officer := env.login(t, env.officer.NIK)

	req := map[string]any{
		"nik":      "3200000000000009",
		"name":     "Dewi Lestari",
		"region":   "Region 3",
		"address":  "Jl. Anggrek No. 9",
		"role":     "user",
		"password": "rahasia123",
	}
	rec, _ := env.do(t, http.MethodPost, "/api/users", officer, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/users", admin, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = env.do(t, http.MethodPost, "/api/users", admin, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/users/search?q=dewi", officer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []userdomain.Response
	require.NoError(t, json.Unmarshal(body.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Dewi Lestari", found[0].Name)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, env.household.NIK)

	rec, _ := env.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMapError(t *testing.T) {
	status, payload := mapError(authorization.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", payload.Type)

	status, _ = mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)

	typ, code := classifyErrorForLog(newValidationError("month", "invalid_month", "invalid"))
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_month", code)
}
