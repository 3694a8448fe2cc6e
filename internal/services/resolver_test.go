package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindUser(ctx context.Context, id string) (*DirectoryUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DirectoryUser), args.Error(1)
}

type NameResolverTestSuite struct {
	suite.Suite
	mockDirectory *MockUserDirectory
	resolver      NameResolver
	ctx           context.Context
}

func (suite *NameResolverTestSuite) SetupTest() {
	suite.mockDirectory = &MockUserDirectory{}
	suite.resolver = NewNameResolver(suite.mockDirectory)
	suite.ctx = context.Background()

	suite.mockDirectory.Test(suite.T())
}

func (suite *NameResolverTestSuite) TearDownTest() {
	suite.mockDirectory.AssertExpectations(suite.T())
}

func TestNameResolverTestSuite(t *testing.T) {
	suite.Run(t, new(NameResolverTestSuite))
}

func (suite *NameResolverTestSuite) TestExplicitNameWins() {
	name := suite.resolver.Resolve(suite.ctx, "Acme Corp", "user-1")
	assert.Equal(suite.T(), "Acme Corp", name)
	suite.mockDirectory.AssertNotCalled(suite.T(), "FindUser", mock.Anything, mock.Anything)
}

func (suite *NameResolverTestSuite) TestFullNameFromDirectory() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(&DirectoryUser{
		FirstName: "Ada",
		LastName:  "Lovelace",
	}, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "Ada Lovelace's Business", name)
}

func (suite *NameResolverTestSuite) TestFirstNameOnly() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(&DirectoryUser{
		FirstName: "Ada",
	}, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "Ada's Business", name)
}

func (suite *NameResolverTestSuite) TestLastNameOnly() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(&DirectoryUser{
		LastName: "Lovelace",
	}, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "Lovelace's Business", name)
}

func (suite *NameResolverTestSuite) TestEmailLocalPart() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(&DirectoryUser{
		Email: "grace.hopper@x.com",
	}, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "Grace's Business", name)
}

func (suite *NameResolverTestSuite) TestEmailWithoutDot() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(&DirectoryUser{
		Email: "grace@x.com",
	}, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "Grace's Business", name)
}

func (suite *NameResolverTestSuite) TestNoSignalsYieldsEmpty() {
	name := suite.resolver.Resolve(suite.ctx, "", "")
	assert.Equal(suite.T(), "", name)
	suite.mockDirectory.AssertNotCalled(suite.T(), "FindUser", mock.Anything, mock.Anything)
}

func (suite *NameResolverTestSuite) TestLookupErrorYieldsEmpty() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(nil, errors.New("directory timeout"))

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "", name)
}

func (suite *NameResolverTestSuite) TestUnknownUserYieldsEmpty() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(nil, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "", name)
}

func (suite *NameResolverTestSuite) TestEmptyDirectoryFieldsYieldEmpty() {
	suite.mockDirectory.On("FindUser", suite.ctx, "user-1").Return(&DirectoryUser{}, nil)

	name := suite.resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "", name)
}

func (suite *NameResolverTestSuite) TestNilDirectoryYieldsEmpty() {
	resolver := NewNameResolver(nil)
	name := resolver.Resolve(suite.ctx, "", "user-1")
	assert.Equal(suite.T(), "", name)
}
