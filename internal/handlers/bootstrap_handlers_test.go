package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opsbooks/internal/common"
	"opsbooks/internal/models"
	"opsbooks/internal/repositories"
	"opsbooks/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockBootstrapService struct {
	mock.Mock
}

func (m *MockBootstrapService) Provision(ctx context.Context, req *services.BootstrapRequest) (*services.BootstrapResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BootstrapResult), args.Error(1)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Probe(ctx context.Context, id uuid.UUID) (*repositories.ProbeResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.ProbeResult), args.Error(1)
}

func (m *MockTenantRepository) RepairTenantID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTenantRepository) Upsert(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetTenantExists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetTenantExists(ctx context.Context, tenantID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) EnqueuePendingBootstrap(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockCacheService) DequeuePendingBootstrap(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type BootstrapHandlersTestSuite struct {
	suite.Suite
	mockSvc     *MockBootstrapService
	mockTenants *MockTenantRepository
	handlers    *BootstrapHandlers
	echo        *echo.Echo
	tenantID    uuid.UUID
}

func (suite *BootstrapHandlersTestSuite) SetupTest() {
	suite.mockSvc = &MockBootstrapService{}
	suite.mockTenants = &MockTenantRepository{}
	suite.handlers = NewBootstrapHandlers(suite.mockSvc, suite.mockTenants, nil)
	suite.echo = echo.New()
	suite.tenantID = uuid.New()

	suite.mockSvc.Test(suite.T())
	suite.mockTenants.Test(suite.T())
}

func (suite *BootstrapHandlersTestSuite) TearDownTest() {
	suite.mockSvc.AssertExpectations(suite.T())
	suite.mockTenants.AssertExpectations(suite.T())
}

func TestBootstrapHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(BootstrapHandlersTestSuite))
}

func (suite *BootstrapHandlersTestSuite) postBootstrap(body string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/bootstrap", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := suite.echo.NewContext(req, rec)
	return rec, c
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_Success() {
	body := `{"tenantId":"` + suite.tenantID.String() + `","businessName":"Acme Corp"}`
	rec, c := suite.postBootstrap(body)

	suite.mockSvc.On("Provision", mock.Anything, mock.AnythingOfType("*services.BootstrapRequest")).
		Return(&services.BootstrapResult{
			Success:  true,
			Exists:   false,
			TenantID: suite.tenantID.String(),
			Message:  "tenant provisioned",
		}, nil)

	err := suite.handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var resp BootstrapResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(suite.T(), resp.Success)
	assert.False(suite.T(), resp.Exists)
	assert.Equal(suite.T(), suite.tenantID.String(), resp.TenantID)
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_InvalidTenantID() {
	rec, c := suite.postBootstrap(`{"tenantId":"not-a-uuid"}`)

	err := suite.handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "VALIDATION_ERROR")

	suite.mockSvc.AssertNotCalled(suite.T(), "Provision", mock.Anything, mock.Anything)
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_CacheHitShortCircuits() {
	mockCache := &MockCacheService{}
	mockCache.Test(suite.T())
	handlers := NewBootstrapHandlers(suite.mockSvc, suite.mockTenants, mockCache)

	body := `{"tenantId":"` + suite.tenantID.String() + `"}`
	rec, c := suite.postBootstrap(body)

	mockCache.On("GetTenantExists", mock.Anything, suite.tenantID).Return(true, nil)

	err := handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var resp BootstrapResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(suite.T(), resp.Success)
	assert.True(suite.T(), resp.Exists)

	suite.mockSvc.AssertNotCalled(suite.T(), "Provision", mock.Anything, mock.Anything)
	mockCache.AssertExpectations(suite.T())
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_HyphenlessIDRejectedDespiteCacheHit() {
	mockCache := &MockCacheService{}
	mockCache.Test(suite.T())
	handlers := NewBootstrapHandlers(suite.mockSvc, suite.mockTenants, mockCache)

	// 32-char hyphenless encoding of a cached tenant must not slip past
	// the strict identifier check via the cache fast path
	hyphenless := strings.ReplaceAll(suite.tenantID.String(), "-", "")
	rec, c := suite.postBootstrap(`{"tenantId":"` + hyphenless + `"}`)

	err := handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "VALIDATION_ERROR")

	mockCache.AssertNotCalled(suite.T(), "GetTenantExists", mock.Anything, mock.Anything)
	suite.mockSvc.AssertNotCalled(suite.T(), "Provision", mock.Anything, mock.Anything)
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_HardFailure() {
	body := `{"tenantId":"` + suite.tenantID.String() + `"}`
	rec, c := suite.postBootstrap(body)

	suite.mockSvc.On("Provision", mock.Anything, mock.Anything).
		Return(nil, errors.New("tenant write failed"))

	err := suite.handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)

	var resp BootstrapResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(suite.T(), resp.Success)
	assert.Equal(suite.T(), "tenant provisioning failed", resp.Error)
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_Fallback() {
	body := `{"tenantId":"` + suite.tenantID.String() + `"}`
	rec, c := suite.postBootstrap(body)

	suite.mockSvc.On("Provision", mock.Anything, mock.Anything).
		Return(&services.BootstrapResult{
			Success:  true,
			TenantID: suite.tenantID.String(),
			Fallback: true,
			Message:  "provisioning deferred, will retry",
		}, nil)

	err := suite.handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var resp BootstrapResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(suite.T(), resp.Success)
	assert.True(suite.T(), resp.Fallback)
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_ClaimsFillMissingFields() {
	body := `{"tenantId":"` + suite.tenantID.String() + `"}`
	rec, c := suite.postBootstrap(body)

	ctx := context.WithValue(c.Request().Context(), common.SubjectKey, "auth0|subject-7")
	ctx = context.WithValue(ctx, common.EmailKey, "subject@example.com")
	c.SetRequest(c.Request().WithContext(ctx))

	suite.mockSvc.On("Provision", mock.Anything, mock.AnythingOfType("*services.BootstrapRequest")).
		Return(&services.BootstrapResult{Success: true, TenantID: suite.tenantID.String()}, nil).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(*services.BootstrapRequest)
			assert.Equal(suite.T(), "auth0|subject-7", req.UserID)
			assert.Equal(suite.T(), "subject@example.com", req.Email)
		})

	err := suite.handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *BootstrapHandlersTestSuite) TestBootstrap_PayloadFieldsWinOverClaims() {
	body := `{"tenantId":"` + suite.tenantID.String() + `","userId":"explicit-user","email":"explicit@example.com"}`
	rec, c := suite.postBootstrap(body)

	ctx := context.WithValue(c.Request().Context(), common.SubjectKey, "auth0|subject-7")
	c.SetRequest(c.Request().WithContext(ctx))

	suite.mockSvc.On("Provision", mock.Anything, mock.AnythingOfType("*services.BootstrapRequest")).
		Return(&services.BootstrapResult{Success: true, TenantID: suite.tenantID.String()}, nil).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(*services.BootstrapRequest)
			assert.Equal(suite.T(), "explicit-user", req.UserID)
			assert.Equal(suite.T(), "explicit@example.com", req.Email)
		})

	err := suite.handlers.Bootstrap(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *BootstrapHandlersTestSuite) TestGetTenant_Success() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/"+suite.tenantID.String(), nil)
	rec := httptest.NewRecorder()
	c := suite.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(suite.tenantID.String())

	suite.mockTenants.On("GetByID", mock.Anything, suite.tenantID).Return(&models.Tenant{
		ID:       suite.tenantID,
		TenantID: suite.tenantID.String(),
		Name:     "Acme Corp",
	}, nil)

	err := suite.handlers.GetTenant(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), "Acme Corp")
}

func (suite *BootstrapHandlersTestSuite) TestGetTenant_InvalidID() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/nope", nil)
	rec := httptest.NewRecorder()
	c := suite.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := suite.handlers.GetTenant(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)

	suite.mockTenants.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}
