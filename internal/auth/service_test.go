package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/tinyforum/backend/internal/database/dbtest"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	authService *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.authService = NewService(dbtest.Open(suite.T()), []byte("test_jwt_secret_key"))
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.authService.Register(suite.ctx, RegisterRequest{
		Email:    email,
		Username: username,
		Password: "password123",
	})
	require.NoError(suite.T(), err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegister() {
	t := suite.T()

	resp := suite.register("Test@Example.com", "tester")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "test@example.com", resp.User.Email)
	assert.Equal(t, "tester", resp.User.DisplayName, "display name defaults to username")
	require.NotNil(t, resp.User.PasswordHash)
	assert.NotEqual(t, "password123", *resp.User.PasswordHash)
	assert.False(t, resp.User.IsModerator)

	_, err := suite.authService.Register(suite.ctx, RegisterRequest{Email: "TEST@example.com", Username: "other", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = suite.authService.Register(suite.ctx, RegisterRequest{Email: "new@example.com", Username: "TESTER", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()
	suite.register("login@example.com", "login")

	resp, err := suite.authService.Login(suite.ctx, LoginRequest{Email: "LOGIN@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotNil(t, resp.User.LastActiveAt)

	_, err = suite.authService.Login(suite.ctx, LoginRequest{Email: "login@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = suite.authService.Login(suite.ctx, LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()
	resp := suite.register("token@example.com", "token")

	user, err := suite.authService.ValidateToken(suite.ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = suite.authService.ValidateToken(suite.ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(suite.authService.db, []byte("other-secret"))
	_, err = other.ValidateToken(suite.ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	suite.authService.now = func() time.Time { return time.Now().Add(TokenTTL + time.Minute) }
	_, err = suite.authService.ValidateToken(suite.ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsOtherAlgorithms() {
	t := suite.T()
	resp := suite.register("alg@example.com", "alg")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: resp.User.ID})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = suite.authService.ValidateToken(suite.ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestSetModerator() {
	t := suite.T()
	resp := suite.register("mod@example.com", "mod")

	user, err := suite.authService.SetModerator(suite.ctx, "mod@example.com", true)
	require.NoError(t, err)
	assert.True(t, user.IsModerator)

	// Powers come from the database, so an old token sees the change.
	fresh, err := suite.authService.ValidateToken(suite.ctx, resp.Token)
	require.NoError(t, err)
	assert.True(t, fresh.IsModerator)

	_, err = suite.authService.SetModerator(suite.ctx, "mod@example.com", false)
	require.NoError(t, err)
	fresh, err = suite.authService.ValidateToken(suite.ctx, resp.Token)
	require.NoError(t, err)
	assert.False(t, fresh.IsModerator, "revocation applies without a new login")

	_, err = suite.authService.SetModerator(suite.ctx, "missing@example.com", true)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
