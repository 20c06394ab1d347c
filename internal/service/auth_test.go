package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/otp"
	"storefront/internal/repository/memory"
	"storefront/internal/service"
	"storefront/internal/token"
)

const phone = "9876543210"

type authFixture struct {
	svc    *service.AuthService
	users  *memory.UserRepository
	codes  *otp.MemoryStore
	tokens *token.Manager
	now    time.Time
}

// newAuthFixture hands out the given codes in order, one per SendOTP.
func newAuthFixture(t *testing.T, codes ...string) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  memory.NewUserRepository(),
		codes:  otp.NewMemoryStore(),
		tokens: token.NewManager("test-secret", 5*24*time.Hour),
		now:    time.Now(),
	}
	f.svc = service.NewAuthService(f.users, f.codes, f.tokens, service.AuthConfig{
		ExposeCode: true,
		HashCost:   bcrypt.MinCost,
	}, zap.NewNop())
	f.svc.SetClock(func() time.Time { return f.now })

	next := 0
	f.svc.SetCodeGenerator(func(int) (string, error) {
		if next >= len(codes) {
			t.Fatalf("unexpected code request %d", next)
		}
		code := codes[next]
		next++
		return code, nil
	})
	return f
}

func TestSendOTPValidatesPhone(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Phone number is required", apperr.Message(err))

	_, err = f.svc.SendOTP(ctx, "12345")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "12345 is not a valid phone number!", apperr.Message(err))
}

func TestSendOTPCreatesStubUser(t *testing.T) {
	f := newAuthFixture(t, "4821")
	res, err := f.svc.SendOTP(context.Background(), phone)
	require.NoError(t, err)

	assert.True(t, res.IsNewUser)
	assert.Equal(t, "4821", res.DebugOTP)

	user, err := f.users.FindByPhone(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, "User3210", user.Name)
	assert.False(t, user.ProfileCompleted)
	assert.NotEmpty(t, user.OTPHash)
	assert.NotEqual(t, "4821", user.OTPHash)
}

func TestVerifyOTPSecondSendInvalidatesFirst(t *testing.T) {
	f := newAuthFixture(t, "1111", "2222")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	_, err = f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, phone, "1111")
	require.ErrorIs(t, err, apperr.ErrInvalid)

	session, err := f.svc.VerifyOTP(ctx, phone, "2222")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.User.IsPhoneVerified)
	assert.True(t, session.RequiresProfileCompletion)
}

func TestVerifyOTPCannotBeReplayed(t *testing.T) {
	f := newAuthFixture(t, "5555")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	_, err = f.svc.VerifyOTP(ctx, phone, "5555")
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, phone, "5555")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyOTPLocksAfterThreeFailures(t *testing.T) {
	f := newAuthFixture(t, "7777")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.svc.VerifyOTP(ctx, phone, "0000")
		require.ErrorIs(t, err, apperr.ErrInvalid)
	}
	_, err = f.svc.VerifyOTP(ctx, phone, "0000")
	require.ErrorIs(t, err, apperr.ErrTooManyAttempts)

	// the right code no longer works
	_, err = f.svc.VerifyOTP(ctx, phone, "7777")
	require.ErrorIs(t, err, apperr.ErrTooManyAttempts)

	assert.Equal(t, 0, f.codes.Len())
}

func TestVerifyOTPFallsBackToPersistedCode(t *testing.T) {
	f := newAuthFixture(t, "3141")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	// simulate a restart of the in-memory store
	require.NoError(t, f.codes.Delete(ctx, phone))

	_, err = f.svc.VerifyOTP(ctx, phone, "9999")
	require.ErrorIs(t, err, apperr.ErrInvalid)

	session, err := f.svc.VerifyOTP(ctx, phone, "3141")
	require.NoError(t, err)
	assert.Equal(t, phone, session.User.Phone)
}

func TestVerifyOTPLockoutSurvivesStoreLoss(t *testing.T) {
	f := newAuthFixture(t, "2718")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, phone, "0000")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = f.svc.VerifyOTP(ctx, phone, "0001")
	require.ErrorIs(t, err, apperr.ErrInvalid)

	require.NoError(t, f.codes.Delete(ctx, phone))

	_, err = f.svc.VerifyOTP(ctx, phone, "0002")
	require.ErrorIs(t, err, apperr.ErrTooManyAttempts)
	_, err = f.svc.VerifyOTP(ctx, phone, "2718")
	require.ErrorIs(t, err, apperr.ErrTooManyAttempts)
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newAuthFixture(t, "1234")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)

	f.now = f.now.Add(11 * time.Minute)
	_, err = f.svc.VerifyOTP(ctx, phone, "1234")
	require.ErrorIs(t, err, apperr.ErrExpired)
	assert.Equal(t, "OTP has expired", apperr.Message(err))

	_, err = f.svc.VerifyOTP(ctx, phone, "1234")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyOTPUnknownPhone(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.VerifyOTP(context.Background(), phone, "1234")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.VerifyOTP(context.Background(), phone, "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCompleteProfileFlow(t *testing.T) {
	f := newAuthFixture(t, "8080", "9090")
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	session, err := f.svc.VerifyOTP(ctx, phone, "8080")
	require.NoError(t, err)
	userID := session.User.ID

	_, err = f.svc.CompleteProfile(ctx, userID, "Asha", "not-an-email")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CompleteProfile(ctx, userID, " ", "asha@example.com")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CompleteProfile(ctx, primitive.NewObjectID(), "Asha", "asha@example.com")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	done, err := f.svc.CompleteProfile(ctx, userID, "Asha", "Asha@Example.com")
	require.NoError(t, err)
	assert.True(t, done.User.ProfileCompleted)
	assert.Equal(t, "asha@example.com", done.User.Email)
	assert.NotEmpty(t, done.Token)

	// a returning user is no longer new
	res, err := f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)
	assert.False(t, res.IsNewUser)
	again, err := f.svc.VerifyOTP(ctx, phone, "9090")
	require.NoError(t, err)
	assert.False(t, again.RequiresProfileCompletion)
}

func TestCompleteProfileDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first := f.users.Put(usersFixture("9876500001", "taken@example.com"))
	second := f.users.Put(usersFixture("9876500002", ""))
	require.NotEqual(t, first.ID, second.ID)

	_, err := f.svc.CompleteProfile(ctx, second.ID, "Ravi", "taken@example.com")
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.users.Put(usersFixture(phone, ""))

	raw, err := f.tokens.Issue(user.ID, user.Phone)
	require.NoError(t, err)
	got, err := f.svc.Authenticate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "Token is not valid", apperr.Message(err))

	orphan, err := f.tokens.Issue(primitive.NewObjectID(), "9000000000")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, orphan)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "Token is invalid - user not found", apperr.Message(err))

	foreign, err := f.tokens.Issue(user.ID, "9123456789")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, foreign)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, "Token is not valid", apperr.Message(err))
}

func TestSendOTPNormalizesCountryCode(t *testing.T) {
	f := newAuthFixture(t, "1111", "2222")
	ctx := context.Background()

	first, err := f.svc.SendOTP(ctx, "+91"+phone)
	require.NoError(t, err)
	assert.True(t, first.IsNewUser)
	_, err = f.svc.SendOTP(ctx, phone)
	require.NoError(t, err)

	user, err := f.users.FindByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, phone, user.Phone)
	_, err = f.users.FindByPhone(ctx, "+91"+phone)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	session, err := f.svc.VerifyOTP(ctx, "+91"+phone, "2222")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
}
