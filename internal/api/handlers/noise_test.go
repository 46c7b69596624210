package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dpkit/internal/accounting"
	"github.com/inferloop/dpkit/pkg/models"
)

func newTestRouter(acct *accounting.Accountant) *mux.Router {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	router := mux.NewRouter()
	NewNoiseHandler(acct, nil, logger).RegisterRoutes(router)
	return router
}

func postNoise(t *testing.T, router *mux.Router, req models.NoiseRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/noise", bytes.NewReader(body)))
	return rec
}

func TestAddNoiseLaplace(t *testing.T) {
	acct := accounting.NewAccountant(1.0, 1e-5, nil)
	router := newTestRouter(acct)

	rec := postNoise(t, router, models.NoiseRequest{
		Mechanism:   "laplace",
		Value:       100.0,
		Sensitivity: 1.0,
		Epsilon:     0.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.NoiseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "laplace", resp.Mechanism)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 0.5, resp.TotalEpsilon)
	assert.Equal(t, 0.0, resp.TotalDelta)

	eps, _ := acct.PrivacyLoss()
	assert.Equal(t, 0.5, eps)
}

func TestAddNoiseGaussianDoesNotSpendBudget(t *testing.T) {
	acct := accounting.NewAccountant(1.0, 1e-5, nil)
	router := newTestRouter(acct)

	rec := postNoise(t, router, models.NoiseRequest{
		Mechanism:   "gaussian",
		Value:       100.0,
		Sensitivity: 1.0,
		Epsilon:     0.5,
		Delta:       1e-5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The Gaussian mechanism does not touch the accountant.
	eps, delta := acct.PrivacyLoss()
	assert.Equal(t, 0.0, eps)
	assert.Equal(t, 0.0, delta)
}

func TestAddNoiseInvalidParameters(t *testing.T) {
	cases := []struct {
		name string
		req  models.NoiseRequest
	}{
		{"unknown mechanism", models.NoiseRequest{Mechanism: "exponential", Value: 1, Sensitivity: 1, Epsilon: 1}},
		{"zero epsilon", models.NoiseRequest{Mechanism: "laplace", Value: 1, Sensitivity: 1, Epsilon: 0}},
		{"negative sensitivity", models.NoiseRequest{Mechanism: "laplace", Value: 1, Sensitivity: -1, Epsilon: 1}},
		{"gaussian delta out of range", models.NoiseRequest{Mechanism: "gaussian", Value: 1, Sensitivity: 1, Epsilon: 0.5, Delta: 1.0}},
		{"gaussian epsilon of one", models.NoiseRequest{Mechanism: "gaussian", Value: 1, Sensitivity: 1, Epsilon: 1.0, Delta: 1e-5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acct := accounting.NewAccountant(1.0, 1e-5, nil)
			router := newTestRouter(acct)

			rec := postNoise(t, router, tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			// Failed requests leave the accountant untouched.
			eps, delta := acct.PrivacyLoss()
			assert.Equal(t, 0.0, eps)
			assert.Equal(t, 0.0, delta)
		})
	}
}

func TestAddNoiseMalformedBody(t *testing.T) {
	router := newTestRouter(accounting.NewAccountant(1.0, 1e-5, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/noise", bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBudget(t *testing.T) {
	acct := accounting.NewAccountant(2.0, 1e-4, nil)
	require.NoError(t, acct.Update(0.5, 1e-6))
	router := newTestRouter(acct)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/budget", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap models.BudgetSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2.0, snap.ConfiguredEpsilon)
	assert.Equal(t, 0.5, snap.TotalEpsilon)
	assert.InDelta(t, 1.5, snap.RemainingEpsilon, 1e-12)
	assert.Equal(t, 1, snap.Transactions)
}

func TestGetTransactions(t *testing.T) {
	acct := accounting.NewAccountant(1.0, 0.0, nil)
	router := newTestRouter(acct)

	rec := postNoise(t, router, models.NoiseRequest{
		Mechanism:   "laplace",
		Value:       10.0,
		Sensitivity: 1.0,
		Epsilon:     0.2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/budget/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Transactions []accounting.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Transactions, 1)
	assert.Equal(t, "laplace", payload.Transactions[0].Mechanism)
	assert.Equal(t, 0.2, payload.Transactions[0].Epsilon)
}
