// Package service implements phone OTP issuance and verification.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	accountdomain "identity-gateway/backend/internal/account/domain"
	accountrepo "identity-gateway/backend/internal/account/repository"
	"identity-gateway/backend/internal/devotp"
	"identity-gateway/backend/internal/otp"
	"identity-gateway/backend/internal/otp/domain"
	"identity-gateway/backend/internal/otp/repository"
	"identity-gateway/backend/internal/otp/sms"
	"identity-gateway/backend/internal/security"
	"identity-gateway/backend/internal/telemetry"
	telemetrydomain "identity-gateway/backend/internal/telemetry/domain"
)

const (
	// DefaultTTL is the challenge lifetime when Config.TTL is unset.
	DefaultTTL = 5 * time.Minute

	// maxCreateRetries bounds lookup retries after losing an account creation race.
	maxCreateRetries = 3

	methodOTP = "otp"
)

// AccountRepo is the minimal account repository needed by the challenge service.
type AccountRepo interface {
	GetByPhone(ctx context.Context, phone string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	SetPhoneVerified(ctx context.Context, id string, at time.Time) (time.Time, error)
}

// Config is the service's validated configuration.
type Config struct {
	TTL time.Duration
	// ReturnToClient echoes the plaintext code in IssueResult and skips SMS. Dev only.
	ReturnToClient bool
}

// IssueResult is returned by Issue. DevCode is set only when Config.ReturnToClient is on.
type IssueResult struct {
	Phone     string
	ExpiresAt time.Time
	DevCode   string
}

// ChallengeService issues and verifies phone OTP challenges and resolves the
// verified phone to an account.
type ChallengeService struct {
	store    repository.Store
	accounts AccountRepo
	hasher   security.SecretHasher
	sender   sms.Sender
	devCodes devotp.Store
	events   telemetry.EventEmitter
	logger   *slog.Logger
	cfg      Config
	metrics  *metrics

	creating singleflight.Group
	nowF     func() time.Time
	newID    func() string
}

// Option customizes a ChallengeService.
type Option func(*ChallengeService)

// WithDevCodeStore records issued codes in store when ReturnToClient is on.
func WithDevCodeStore(store devotp.Store) Option {
	return func(s *ChallengeService) { s.devCodes = store }
}

// WithEventEmitter sets the emitter for otp_issued and otp_verified events.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *ChallengeService) {
		if e != nil {
			s.events = e
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *ChallengeService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *ChallengeService) { s.nowF = now }
}

// NewChallengeService returns a ChallengeService. sender may be nil only when cfg.ReturnToClient is set.
func NewChallengeService(
	store repository.Store,
	accounts AccountRepo,
	hasher security.SecretHasher,
	sender sms.Sender,
	cfg Config,
	opts ...Option,
) *ChallengeService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	s := &ChallengeService{
		store:    store,
		accounts: accounts,
		hasher:   hasher,
		sender:   sender,
		events:   telemetry.Nop{},
		logger:   slog.Default(),
		cfg:      cfg,
		metrics:  newMetrics(),
		nowF:     time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChallengeService) now() time.Time { return s.nowF().UTC() }

func validatePhone(phone string) error {
	n := utf8.RuneCountInString(phone)
	if n == 0 {
		return invalid("phone", "is required")
	}
	if n < otp.PhoneMinLen || n > otp.PhoneMaxLen {
		return invalid("phone", "must be between %d and %d characters", otp.PhoneMinLen, otp.PhoneMaxLen)
	}
	return nil
}

func validateCode(code string) error {
	n := utf8.RuneCountInString(code)
	if n == 0 {
		return invalid("code", "is required")
	}
	if n < otp.CodeMinLen || n > otp.CodeMaxLen {
		return invalid("code", "must be between %d and %d characters", otp.CodeMinLen, otp.CodeMaxLen)
	}
	return nil
}

// Issue creates a fresh challenge for phone, replacing any pending one, and delivers the code.
// A delivery failure returns ErrDeliveryFailed; the stored challenge is left in place.
func (s *ChallengeService) Issue(ctx context.Context, rawPhone string) (*IssueResult, error) {
	if err := validatePhone(rawPhone); err != nil {
		return nil, err
	}
	phone := otp.NormalizePhone(rawPhone)
	if phone == "" {
		return nil, invalid("phone", "is required")
	}

	ctx, span := tracer.Start(ctx, "otp.Issue", trace.WithAttributes(
		attribute.String("phone.masked", otp.MaskPhone(phone))))
	defer span.End()

	code, err := otp.GenerateCode()
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("generate code: %w", err))
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("hash code: %w", err))
	}
	now := s.now()
	challenge := &domain.Challenge{
		ID:        s.newID(),
		Phone:     phone,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(s.cfg.TTL),
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, challenge); err != nil {
		return nil, s.fail(span, fmt.Errorf("store challenge: %w", err))
	}

	result := &IssueResult{Phone: phone, ExpiresAt: challenge.ExpiresAt}
	if s.cfg.ReturnToClient {
		result.DevCode = code
		if s.devCodes != nil {
			s.devCodes.Put(ctx, phone, code, challenge.ExpiresAt)
		}
		s.logger.WarnContext(ctx, "otp issued in dev mode; code returned to client",
			slog.String("phone", otp.MaskPhone(phone)))
	} else {
		if s.sender == nil {
			return nil, s.fail(span, fmt.Errorf("%w: no sms sender configured", ErrDeliveryFailed))
		}
		if err := s.sender.SendOTP(ctx, phone, code); err != nil {
			s.logger.ErrorContext(ctx, "otp delivery failed",
				slog.String("phone", otp.MaskPhone(phone)), slog.Any("error", err))
			return nil, s.fail(span, fmt.Errorf("%w: %w", ErrDeliveryFailed, err))
		}
	}

	s.metrics.issued.Add(ctx, 1)
	s.emit(ctx, &telemetrydomain.Event{
		Type:    telemetrydomain.EventOTPIssued,
		Method:  methodOTP,
		Outcome: outcomeSuccess,
		Phone:   otp.MaskPhone(phone),
	})
	s.logger.InfoContext(ctx, "otp issued",
		slog.String("phone", otp.MaskPhone(phone)),
		slog.Time("expires_at", challenge.ExpiresAt))
	return result, nil
}

// Verify checks code against the pending challenge for phone. On success the
// challenge is consumed and the phone's account is returned, created on first use.
func (s *ChallengeService) Verify(ctx context.Context, rawPhone, code string) (*accountdomain.Account, error) {
	if err := validatePhone(rawPhone); err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}
	phone := otp.NormalizePhone(rawPhone)
	if phone == "" {
		return nil, invalid("phone", "is required")
	}

	ctx, span := tracer.Start(ctx, "otp.Verify", trace.WithAttributes(
		attribute.String("phone.masked", otp.MaskPhone(phone))))
	defer span.End()

	acc, outcome, err := s.verify(ctx, phone, code)
	span.SetAttributes(attribute.String("otp.outcome", outcome))
	s.metrics.recordVerify(ctx, outcome)

	event := &telemetrydomain.Event{
		Type:    telemetrydomain.EventOTPVerified,
		Method:  methodOTP,
		Outcome: outcomeSuccess,
		Phone:   otp.MaskPhone(phone),
	}
	if err != nil {
		event.Type = telemetrydomain.EventOTPVerifyFailed
		event.Outcome = outcome
		if outcome == outcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.emit(ctx, event)
		s.logger.InfoContext(ctx, "otp verification rejected",
			slog.String("phone", otp.MaskPhone(phone)), slog.String("outcome", outcome))
		return nil, err
	}
	event.AccountID = acc.ID
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "otp verified",
		slog.String("phone", otp.MaskPhone(phone)), slog.String("account_id", acc.ID))
	return acc, nil
}

func (s *ChallengeService) verify(ctx context.Context, phone, code string) (*accountdomain.Account, string, error) {
	c, err := s.store.Get(ctx, phone)
	if err != nil {
		return nil, outcomeError, fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		return nil, outcomeNotFound, ErrChallengeNotFound
	}
	if c.Expired(s.now()) {
		if _, err := s.store.DeleteIfMatch(ctx, phone, c.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired challenge",
				slog.String("phone", otp.MaskPhone(phone)), slog.Any("error", err))
		}
		s.forgetDevCode(ctx, phone)
		return nil, outcomeExpired, ErrChallengeExpired
	}
	if c.Exhausted() {
		return nil, outcomeTooManyAttempts, ErrTooManyAttempts
	}

	matched := s.hasher.Verify(code, c.CodeHash)

	attempts, err := s.store.IncrementAttempts(ctx, phone, c.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, outcomeNotFound, ErrChallengeNotFound
	}
	if err != nil {
		return nil, outcomeError, fmt.Errorf("increment attempts: %w", err)
	}
	if attempts > domain.MaxAttempts {
		return nil, outcomeTooManyAttempts, ErrTooManyAttempts
	}
	if !matched {
		return nil, outcomeInvalid, ErrInvalidCode
	}

	consumed, err := s.store.DeleteIfMatch(ctx, phone, c.ID)
	if err != nil {
		return nil, outcomeError, fmt.Errorf("consume challenge: %w", err)
	}
	if !consumed {
		return nil, outcomeNotFound, ErrChallengeNotFound
	}
	s.forgetDevCode(ctx, phone)

	acc, err := s.accountForPhone(ctx, phone)
	if err != nil {
		return nil, outcomeError, err
	}
	return acc, outcomeSuccess, nil
}

// accountForPhone finds or creates the account for a verified phone. Concurrent
// calls for one phone in this process share a single resolution; across
// processes the unique phone constraint decides and losers retry as lookups.
func (s *ChallengeService) accountForPhone(ctx context.Context, phone string) (*accountdomain.Account, error) {
	v, err, _ := s.creating.Do(phone, func() (any, error) {
		return s.resolveAccount(context.WithoutCancel(ctx), phone)
	})
	if err != nil {
		return nil, err
	}
	acc := *v.(*accountdomain.Account)
	return &acc, nil
}

func (s *ChallengeService) resolveAccount(ctx context.Context, phone string) (*accountdomain.Account, error) {
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		acc, err := s.accounts.GetByPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("get account by phone: %w", err)
		}
		now := s.now()
		if acc != nil {
			if !acc.PhoneVerified() {
				at, err := s.accounts.SetPhoneVerified(ctx, acc.ID, now)
				if err != nil {
					return nil, fmt.Errorf("set phone verified: %w", err)
				}
				acc.PhoneVerifiedAt = &at
			}
			return acc, nil
		}

		passwordHash, err := security.PlaceholderPasswordHash(s.hasher)
		if err != nil {
			return nil, fmt.Errorf("placeholder password: %w", err)
		}
		verifiedAt := now
		acc = &accountdomain.Account{
			ID:              uuid.NewString(),
			Name:            "User " + otp.LastDigits(phone, 4),
			Phone:           phone,
			PhoneVerifiedAt: &verifiedAt,
			PasswordHash:    passwordHash,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err = s.accounts.Create(ctx, acc)
		if errors.Is(err, accountrepo.ErrConflict) {
			s.logger.DebugContext(ctx, "account creation lost race; retrying as lookup",
				slog.String("phone", otp.MaskPhone(phone)))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		s.metrics.accounts.Add(ctx, 1)
		return acc, nil
	}
	return nil, fmt.Errorf("resolve account for phone: %w", accountrepo.ErrConflict)
}

func (s *ChallengeService) forgetDevCode(ctx context.Context, phone string) {
	if s.devCodes != nil {
		s.devCodes.Delete(ctx, phone)
	}
}

func (s *ChallengeService) emit(ctx context.Context, e *telemetrydomain.Event) {
	e.CreatedAt = s.now()
	if err := s.events.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "auth event emit failed",
			slog.String("event_type", e.Type), slog.Any("error", err))
	}
}

func (s *ChallengeService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
