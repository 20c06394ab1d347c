package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/otp"
	"storefront/internal/token"
)

var validate = validator.New()

type AuthConfig struct {
	OTPTTL      time.Duration
	MaxAttempts int
	CodeLength  int
	// ExposeCode echoes the generated code in the send response. Only for
	// development builds.
	ExposeCode bool
	// HashCost is the bcrypt cost of the persisted code hash.
	HashCost int
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.OTPTTL <= 0 {
		c.OTPTTL = 10 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.CodeLength <= 0 {
		c.CodeLength = 4
	}
	if c.HashCost == 0 {
		c.HashCost = bcrypt.DefaultCost
	}
	return c
}

type SendOTPResult struct {
	IsNewUser bool
	DebugOTP  string
	ExpiresAt time.Time
}

// Session is an issued bearer token and the user it belongs to.
type Session struct {
	Token                     string
	User                      *models.User
	RequiresProfileCompletion bool
}

type AuthService struct {
	users    UserRepository
	codes    otp.Store
	tokens   *token.Manager
	cfg      AuthConfig
	log      *zap.Logger
	now      func() time.Time
	generate func(digits int) (string, error)
}

func NewAuthService(users UserRepository, codes otp.Store, tokens *token.Manager, cfg AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		codes:    codes,
		tokens:   tokens,
		cfg:      cfg.withDefaults(),
		log:      log,
		now:      time.Now,
		generate: otp.GenerateCode,
	}
}

// SendOTP issues a fresh code for phone, replacing any outstanding one, and
// creates the user on first contact.
func (s *AuthService) SendOTP(ctx context.Context, phone string) (*SendOTPResult, error) {
	raw := strings.TrimSpace(phone)
	if raw == "" {
		return nil, apperr.Validation("Phone number is required")
	}
	phone, ok := models.NormalizePhone(raw)
	if !ok {
		return nil, apperr.Validation(raw + " is not a valid phone number!")
	}

	user, created, err := s.users.EnsureByPhone(ctx, phone, models.DefaultUserName(phone))
	if err != nil {
		return nil, err
	}

	code, err := s.generate(s.cfg.CodeLength)
	if err != nil {
		return nil, apperr.Internal("Failed to send OTP", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, apperr.Internal("Failed to send OTP", err)
	}
	expires := s.now().Add(s.cfg.OTPTTL)

	if err := s.codes.Save(ctx, phone, otp.Record{Code: code, Expires: expires}, s.cfg.OTPTTL); err != nil {
		return nil, apperr.Internal("Failed to send OTP", err)
	}
	if err := s.users.SetOTP(ctx, user.ID, string(hash), expires); err != nil {
		return nil, err
	}

	metrics.OTPEventsTotal.WithLabelValues("sent").Inc()
	s.log.Info("otp issued",
		zap.String("user_id", user.ID.Hex()),
		zap.Bool("new_user", created),
		zap.Time("expires", expires),
	)
	if s.cfg.ExposeCode {
		s.log.Debug("otp debug code", zap.String("phone", phone), zap.String("otp", code))
	}

	res := &SendOTPResult{IsNewUser: !user.ProfileCompleted, ExpiresAt: expires}
	if s.cfg.ExposeCode {
		res.DebugOTP = code
	}
	return res, nil
}

// VerifyOTP checks code against the outstanding code for phone and, on a
// match, consumes it and opens a session.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, apperr.Validation("Phone and OTP are required")
	}
	if normalized, ok := models.NormalizePhone(phone); ok {
		phone = normalized
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, s.outcome(apperr.NotFound("No OTP requested for this phone"), "not_found")
	}
	if err != nil {
		return nil, err
	}

	rec, err := s.codes.Get(ctx, phone)
	switch {
	case err == nil:
		return s.verifyLive(ctx, user, rec, code)
	case errors.Is(err, otp.ErrNotFound):
		return s.verifyPersisted(ctx, user, code)
	default:
		return nil, apperr.Internal("Failed to verify OTP", err)
	}
}

// verifyLive checks the code held in the OTP store. Wrong guesses are
// mirrored onto the user document so the lockout survives a store loss.
func (s *AuthService) verifyLive(ctx context.Context, user *models.User, rec otp.Record, code string) (*Session, error) {
	if !s.now().Before(rec.Expires) {
		s.dropCode(ctx, user.Phone)
		if err := s.users.ClearOTP(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, s.outcome(apperr.New(apperr.KindExpired, "OTP has expired"), "expired")
	}
	if rec.Attempts >= s.cfg.MaxAttempts {
		return nil, s.lockOut(ctx, user, rec.Attempts)
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
		s.dropCode(ctx, user.Phone)
		return s.openSession(ctx, user)
	}

	attempts, err := s.codes.IncrAttempts(ctx, user.Phone)
	if errors.Is(err, otp.ErrNotFound) {
		attempts = rec.Attempts + 1
	} else if err != nil {
		return nil, apperr.Internal("Failed to verify OTP", err)
	}
	if _, err := s.users.IncrOTPAttempts(ctx, user.ID); err != nil {
		s.log.Warn("mirror otp attempt failed", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	if attempts >= s.cfg.MaxAttempts {
		return nil, s.lockOut(ctx, user, attempts)
	}
	return nil, s.outcome(apperr.New(apperr.KindInvalid, "Invalid OTP"), "invalid")
}

// verifyPersisted is used when the OTP store has no record, e.g. after a
// restart with the in-memory store. It enforces the same attempt limit.
func (s *AuthService) verifyPersisted(ctx context.Context, user *models.User, code string) (*Session, error) {
	if user.OTPExpires == nil {
		return nil, s.outcome(apperr.NotFound("No OTP requested for this phone"), "not_found")
	}
	if !s.now().Before(*user.OTPExpires) {
		if err := s.users.ClearOTP(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, s.outcome(apperr.New(apperr.KindExpired, "OTP has expired"), "expired")
	}
	if user.OTPAttempts >= s.cfg.MaxAttempts {
		return nil, s.outcome(apperr.New(apperr.KindTooManyAttempts, "Too many failed attempts"), "locked")
	}
	if user.OTPHash == "" {
		return nil, s.outcome(apperr.NotFound("No OTP requested for this phone"), "not_found")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.OTPHash), []byte(code)) == nil {
		return s.openSession(ctx, user)
	}

	attempts, err := s.users.IncrOTPAttempts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if attempts >= s.cfg.MaxAttempts {
		return nil, s.lockOut(ctx, user, attempts)
	}
	return nil, s.outcome(apperr.New(apperr.KindInvalid, "Invalid OTP"), "invalid")
}

func (s *AuthService) lockOut(ctx context.Context, user *models.User, attempts int) error {
	s.dropCode(ctx, user.Phone)
	if err := s.users.LockOTP(ctx, user.ID, attempts); err != nil {
		return err
	}
	s.log.Warn("otp locked after failed attempts",
		zap.String("user_id", user.ID.Hex()),
		zap.Int("attempts", attempts),
	)
	return s.outcome(apperr.New(apperr.KindTooManyAttempts, "Too many failed attempts"), "locked")
}

func (s *AuthService) dropCode(ctx context.Context, phone string) {
	if err := s.codes.Delete(ctx, phone); err != nil {
		s.log.Warn("otp store delete failed", zap.Error(err))
	}
}

func (s *AuthService) outcome(err *apperr.Error, label string) error {
	metrics.OTPEventsTotal.WithLabelValues(label).Inc()
	return err
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*Session, error) {
	verified, err := s.users.MarkPhoneVerified(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	signed, err := s.tokens.Issue(verified.ID, verified.Phone)
	if err != nil {
		return nil, apperr.Internal("Failed to verify OTP", err)
	}
	metrics.OTPEventsTotal.WithLabelValues("verified").Inc()
	s.log.Info("otp verified", zap.String("user_id", verified.ID.Hex()))
	return &Session{
		Token:                     signed,
		User:                      verified,
		RequiresProfileCompletion: !verified.ProfileCompleted,
	}, nil
}

// CompleteProfile sets the user's name and email and issues a new token.
func (s *AuthService) CompleteProfile(ctx context.Context, userID primitive.ObjectID, name, email string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, apperr.Validation("User ID, name and email are required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, apperr.Validation("Please enter a valid email address")
	}

	user, err := s.users.CompleteProfile(ctx, userID, name, email)
	if err != nil {
		return nil, err
	}
	signed, err := s.tokens.Issue(user.ID, user.Phone)
	if err != nil {
		return nil, apperr.Internal("Failed to complete profile", err)
	}
	s.log.Info("profile completed", zap.String("user_id", user.ID.Hex()))
	return &Session{Token: signed, User: user}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, userID, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Unauthorized("Token is not valid")
	}
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("Token is invalid - user not found")
	}
	if err != nil {
		return nil, err
	}
	// the token is bound to the phone it was verified with
	if claims.Phone != user.Phone {
		return nil, apperr.Unauthorized("Token is not valid")
	}
	return user, nil
}
