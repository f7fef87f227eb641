package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"economy-ledger/internal/app"
	"economy-ledger/internal/codec"
	"economy-ledger/internal/config"
	"economy-ledger/internal/domain"
	"economy-ledger/internal/repository"
)

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer testcontainers.Container
	cfg               *config.Config
	app               *app.App
	baseURL           string
	client            *http.Client

	alice, bob, carol uuid.UUID
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	// Start PostgreSQL container with explicit configuration
	containerReq := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "economy",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: containerReq,
		Started:          true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get container host: %s", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get mapped port: %s", err)
	}

	suite.cfg = &config.Config{
		ServerPort:          "0", // Let OS choose a free port
		ShutdownTimeout:     10 * time.Second,
		StoreDriver:         config.DriverPostgres,
		SnapshotRetention:   3,
		DBHost:              host,
		DBPort:              port.Port(),
		DBUser:              "postgres",
		DBPassword:          "password",
		DBName:              "economy",
		DBSSLMode:           "disable",
		PersistTransactions: true,
		CorruptStatePolicy:  config.CorruptPolicyFail,
		CurrencyDecimals:    2,
	}

	suite.alice, suite.bob, suite.carol = uuid.New(), uuid.New(), uuid.New()
	if err := suite.seedEconomy(ctx); err != nil {
		suite.T().Fatalf("Failed to seed economy: %s", err)
	}

	if err := suite.startApplication(); err != nil {
		suite.T().Fatalf("Failed to start application: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}
}

// seedEconomy writes the snapshot the service restores on startup. There is
// no API for creating money, so balances start from persisted state.
func (suite *IntegrationTestSuite) seedEconomy(ctx context.Context) error {
	store, err := repository.NewPostgresStore(ctx, suite.cfg.GetDBConnectionString(), suite.cfg.SnapshotRetention, discardLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := codec.New().Marshal(domain.State{Accounts: []domain.Account{
		{ID: suite.alice, Balance: 100050},
		{ID: suite.bob, Balance: 50025},
	}})
	if err != nil {
		return err
	}
	return store.Save(ctx, data)
}

func (suite *IntegrationTestSuite) startApplication() error {
	application, err := app.New(context.Background(), suite.cfg, discardLogger())
	if err != nil {
		return err
	}
	if _, err := application.Start(); err != nil {
		return err
	}

	suite.app = application
	suite.baseURL = application.BaseURL()

	// Wait for server to be ready
	return suite.waitForServerReady()
}

func (suite *IntegrationTestSuite) stopApplication() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.app != nil {
		assert.NoError(suite.T(), suite.app.Shutdown(ctx))
		suite.app = nil
	}
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	suite.stopApplication()

	if suite.postgresContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		suite.postgresContainer.Terminate(ctx)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Helper methods for API calls

func (suite *IntegrationTestSuite) call(method, path string, payload interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if payload != nil {
		body, _ := json.Marshal(payload)
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	suite.T().Logf("%s %s -> %d %s", method, path, resp.StatusCode, respBody)

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(respBody, &response))
	return resp.StatusCode, response
}

func (suite *IntegrationTestSuite) getAccount(id uuid.UUID) map[string]interface{} {
	status, response := suite.call(http.MethodGet, "/accounts/"+id.String(), nil)
	suite.Require().Equal(http.StatusOK, status)
	return response["data"].(map[string]interface{})
}

func (suite *IntegrationTestSuite) transfer(from, to uuid.UUID, amountDisplay string) (int, map[string]interface{}) {
	return suite.call(http.MethodPost, "/transactions", map[string]interface{}{
		"from":           from.String(),
		"to":             to.String(),
		"amount_display": amountDisplay,
	})
}

func (suite *IntegrationTestSuite) assertErrorCode(response map[string]interface{}, code string) {
	errorData, hasError := response["error"]
	if assert.True(suite.T(), hasError, "Response should have 'error' field for error cases") {
		assert.Equal(suite.T(), code, errorData.(map[string]interface{})["code"])
	}
}

// Helper to compare decimal values properly
func (suite *IntegrationTestSuite) assertBalance(id uuid.UUID, expected string) {
	account := suite.getAccount(id)

	expectedDec := decimal.RequireFromString(expected)
	actualDec, err := decimal.NewFromString(account["balance_display"].(string))
	suite.Require().NoError(err)
	assert.True(suite.T(), expectedDec.Equal(actualDec),
		"Balance of %s: expected %s, got %s", id, expected, actualDec)
}

// ------------------------------------------------------------------
// Steps run in the order invoked by TestFlow; each builds on the
// balances left by the previous one.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) stepHealthCheck() {
	status, response := suite.call(http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, status)

	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "healthy", data["status"])
	supply := data["supply"].(map[string]interface{})
	assert.Equal(suite.T(), float64(150075), supply["total"])
}

func (suite *IntegrationTestSuite) stepSeededAccounts() {
	suite.assertBalance(suite.alice, "1000.50")
	suite.assertBalance(suite.bob, "500.25")

	status, response := suite.call(http.MethodGet, "/accounts", nil)
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Len(suite.T(), response["data"], 2)
}

func (suite *IntegrationTestSuite) stepSuccessfulTransfer() {
	status, response := suite.transfer(suite.alice, suite.bob, "200.50")
	suite.Require().Equal(http.StatusCreated, status)

	data := response["data"].(map[string]interface{})
	assert.NotEmpty(suite.T(), data["transaction_id"])
	assert.Equal(suite.T(), float64(20050), data["amount"])
	assert.Equal(suite.T(), float64(1), data["sequence"])

	// 1000.50 - 200.50 = 800.00
	suite.assertBalance(suite.alice, "800.00")
	// 500.25 + 200.50 = 700.75
	suite.assertBalance(suite.bob, "700.75")
}

func (suite *IntegrationTestSuite) stepTransferToNewAccount() {
	status, _ := suite.call(http.MethodPost, "/transactions", map[string]interface{}{
		"from":   suite.bob.String(),
		"to":     suite.carol.String(),
		"amount": 75,
	})
	suite.Require().Equal(http.StatusCreated, status)

	suite.assertBalance(suite.bob, "700.00")
	suite.assertBalance(suite.carol, "0.75")
}

func (suite *IntegrationTestSuite) stepInsufficientBalance() {
	status, response := suite.transfer(suite.alice, suite.bob, "10000.00")
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)
	suite.assertErrorCode(response, "insufficient_funds")

	// Should remain 800.00 (unchanged)
	suite.assertBalance(suite.alice, "800.00")
}

func (suite *IntegrationTestSuite) stepSameAccountTransfer() {
	status, response := suite.transfer(suite.alice, suite.alice, "100.00")
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	suite.assertErrorCode(response, "same_account_transfer")
}

func (suite *IntegrationTestSuite) stepInvalidAmounts() {
	for _, amount := range []string{"-100.00", "0.00", "0.001", "abc"} {
		status, response := suite.transfer(suite.alice, suite.bob, amount)
		assert.Equal(suite.T(), http.StatusBadRequest, status, amount)
		suite.assertErrorCode(response, "invalid_amount")
	}
}

func (suite *IntegrationTestSuite) stepLockedAccounts() {
	status, _ := suite.call(http.MethodPost, "/accounts/"+suite.bob.String()+"/lock", nil)
	suite.Require().Equal(http.StatusOK, status)

	status, response := suite.transfer(suite.bob, suite.alice, "1.00")
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)
	suite.assertErrorCode(response, "from_locked")

	status, response = suite.transfer(suite.alice, suite.bob, "1.00")
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)
	suite.assertErrorCode(response, "to_locked")

	status, _ = suite.call(http.MethodPost, "/accounts/"+suite.bob.String()+"/unlock", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Equal(suite.T(), false, suite.getAccount(suite.bob)["locked"])
}

func (suite *IntegrationTestSuite) stepTransactionHistory() {
	status, response := suite.call(http.MethodGet, "/transactions", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Len(suite.T(), response["data"], 2)

	status, response = suite.call(http.MethodGet, "/accounts/"+suite.carol.String()+"/transactions", nil)
	suite.Require().Equal(http.StatusOK, status)
	history := response["data"].([]interface{})
	suite.Require().Len(history, 1)
	assert.Equal(suite.T(), suite.bob.String(), history[0].(map[string]interface{})["from"])
}

func (suite *IntegrationTestSuite) stepInvalidAccountID() {
	status, response := suite.call(http.MethodGet, "/accounts/999", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	suite.assertErrorCode(response, "invalid_account_id")
}

func (suite *IntegrationTestSuite) stepRestartRestoresState() {
	suite.stopApplication()
	suite.Require().NoError(suite.startApplication())

	suite.assertBalance(suite.alice, "800.00")
	suite.assertBalance(suite.bob, "700.00")
	suite.assertBalance(suite.carol, "0.75")

	status, response := suite.call(http.MethodGet, "/transactions", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Len(suite.T(), response["data"], 2)

	// Sequence numbers continue after the restored log.
	status, response = suite.transfer(suite.carol, suite.alice, "0.25")
	suite.Require().Equal(http.StatusCreated, status)
	assert.Equal(suite.T(), float64(3), response["data"].(map[string]interface{})["sequence"])
}

func (suite *IntegrationTestSuite) TestFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test in short mode")
	}

	suite.stepHealthCheck()
	suite.stepSeededAccounts()
	suite.stepSuccessfulTransfer()
	suite.stepTransferToNewAccount()
	suite.stepInsufficientBalance()
	suite.stepSameAccountTransfer()
	suite.stepInvalidAmounts()
	suite.stepLockedAccounts()
	suite.stepTransactionHistory()
	suite.stepInvalidAccountID()
	suite.stepRestartRestoresState()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
