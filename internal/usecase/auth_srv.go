package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace-api/internal/data/entity"
	"marketplace-api/internal/data/repository"
	"marketplace-api/internal/dto/request"
	"marketplace-api/internal/dto/response"
	"marketplace-api/pkg/metrics"
	"marketplace-api/pkg/notify"
	"marketplace-api/pkg/security"
	"marketplace-api/pkg/utils"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, req *request.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error
	VerifyEmail(ctx context.Context, req *request.VerifyEmailRequest) error
	RequestEmailVerification(ctx context.Context, req *request.ResendVerificationRequest) error
	VerifySession(ctx context.Context, token string) (*entity.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordRequest) (*response.TokenResponse, error)
}

type authService struct {
	users     repository.UserRepository
	hasher    security.Hasher
	sessions  *security.SessionIssuer
	policy    security.LockoutPolicy
	resetTTL  time.Duration
	verifyTTL time.Duration
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	config *utils.Config,
	log *zap.Logger,
	ext Extensions,
) AuthService {
	ext = ext.withDefaults(config)

	return &authService{
		users:     users,
		hasher:    ext.Hasher,
		sessions:  security.NewSessionIssuer(config.JWT.Secret, config.JWT.TTL(), config.App.Name),
		policy:    security.LockoutPolicy{Threshold: config.Auth.LockoutThreshold, Duration: config.Auth.LockoutDuration},
		resetTTL:  config.Auth.ResetTokenTTL,
		verifyTTL: config.Auth.VerifyTokenTTL,
		notifier:  ext.Notifier,
		metrics:   ext.Metrics,
		log:       log.With(zap.String("service", "auth")),
		now:       ext.Clock,
	}
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (_ *response.AuthResponse, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { endSpan(span, err) }()

	// 1. Validasi input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register validation failed", zap.Any("errors", errs))
		return nil, validationErr(errs)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fieldErr("Name", "This field is required")
	}
	email := utils.NormalizeEmail(req.Email)

	// 2. Cek email sudah terdaftar
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		utils.LogError(s.log, "Failed to check email", err, zap.String("email", email))
		return nil, storeErr("find_by_email", err)
	}
	if existing != nil {
		return nil, duplicateEmail()
	}

	// 3. Hash password
	hash, err := s.hashPassword(ctx, req.Password, "Password")
	if err != nil {
		return nil, err
	}

	// 4. Token verifikasi email
	verifyToken, verifyDigest, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	// 5. Create user entity
	now := s.now()
	verifyExpires := now.Add(s.verifyTTL)
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:                       name,
		Email:                      email,
		PasswordHash:               hash,
		Role:                       entity.RoleUser,
		IsActive:                   true,
		IsEmailVerified:            false,
		Preferences:                entity.DefaultPreferences(),
		EmailVerificationDigest:    &verifyDigest,
		EmailVerificationExpiresAt: &verifyExpires,
		PasswordChangedAt:          now,
		AgreedToTerms:              req.AgreedToTerms,
	}
	if req.AgreedToTerms {
		user.AgreedToTermsAt = &now
	}

	// 6. Save user
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, duplicateEmail()
		}
		utils.LogError(s.log, "Failed to create user", err, zap.String("email", email))
		return nil, storeErr("create_user", err)
	}

	// 7. Kirim token verifikasi
	s.deliver(ctx, notify.Notification{
		Email:     user.Email,
		Name:      user.Name,
		Token:     verifyToken,
		Purpose:   notify.PurposeEmailVerification,
		ExpiresAt: verifyExpires,
	})

	// 8. Auto login setelah register
	token, expiresAt, err := s.sessions.Issue(user.ID, now)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent(metrics.EventRegister)
	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return response.AuthToResponse(user, token, expiresAt), nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (_ *response.AuthResponse, err error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer func() { endSpan(span, err) }()

	// 1. Validasi
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationErr(errs)
	}
	email := utils.NormalizeEmail(req.Email)
	now := s.now()

	// 2. Find user
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		utils.LogError(s.log, "Failed to find user by email", err, zap.String("email", email))
		return nil, storeErr("find_by_email", err)
	}

	// 3. User not found: same cost and answer as a wrong password
	if user == nil {
		s.hasher.VerifyDummy(ctx, req.Password)
		s.metrics.AuthEvent(metrics.EventLoginFailure)
		s.log.Warn("User not found for login", zap.String("email", email))
		return nil, invalidCredentials()
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	// 4. Akun terkunci: tolak tanpa hashing
	if user.IsLocked(now) {
		s.metrics.AuthEvent(metrics.EventLoginLocked)
		s.log.Warn("Login attempt on locked account",
			zap.String("user_id", user.ID.String()),
			zap.Timep("lock_until", user.LockUntil))
		return nil, lockedErr(user.LockUntil)
	}

	// 5. Check password
	if !s.hasher.Verify(ctx, req.Password, user.PasswordHash) {
		state, applied, err := s.users.RecordLoginFailure(ctx, user.ID, now, s.policy)
		if err != nil {
			utils.LogError(s.log, "Failed to record login failure", err, zap.String("user_id", user.ID.String()))
			return nil, storeErr("record_login_failure", err)
		}
		if !applied {
			// locked by a concurrent request between read and write
			s.metrics.AuthEvent(metrics.EventLoginLocked)
			return nil, lockedErr(nil)
		}

		s.metrics.AuthEvent(metrics.EventLoginFailure)
		if state.IsLocked(now) {
			s.metrics.AuthEvent(metrics.EventAccountLocked)
			s.log.Warn("Account locked",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", state.Attempts),
				zap.Timep("lock_until", state.LockUntil))
		} else {
			s.log.Warn("Invalid password",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", state.Attempts))
		}
		return nil, invalidCredentials()
	}

	// 6. Reset counter
	applied, err := s.users.RecordLoginSuccess(ctx, user.ID, now)
	if err != nil {
		utils.LogError(s.log, "Failed to record login success", err, zap.String("user_id", user.ID.String()))
		return nil, storeErr("record_login_success", err)
	}
	if !applied {
		s.metrics.AuthEvent(metrics.EventLoginLocked)
		return nil, lockedErr(nil)
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now

	// 7. Create session
	token, expiresAt, err := s.sessions.Issue(user.ID, now)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent(metrics.EventLoginSuccess)
	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))

	return response.AuthToResponse(user, token, expiresAt), nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, req *request.ForgotPasswordRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.request_password_reset")
	defer func() { endSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationErr(errs)
	}
	email := utils.NormalizeEmail(req.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		utils.LogError(s.log, "Failed to find user for password reset", err, zap.String("email", email))
		return storeErr("find_by_email", err)
	}
	s.metrics.AuthEvent(metrics.EventPasswordResetRequested)

	// Unknown addresses get the same answer
	if user == nil {
		s.log.Info("Password reset requested for unknown email", zap.String("email", email))
		return nil
	}

	token, digest, err := security.GenerateToken()
	if err != nil {
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.resetTTL)
	if err := s.users.SetPasswordResetToken(ctx, user.ID, digest, expiresAt, now); err != nil {
		utils.LogError(s.log, "Failed to store password reset token", err, zap.String("user_id", user.ID.String()))
		return storeErr("set_password_reset_token", err)
	}

	s.deliver(ctx, notify.Notification{
		Email:     user.Email,
		Name:      user.Name,
		Token:     token,
		Purpose:   notify.PurposePasswordReset,
		ExpiresAt: expiresAt,
	})

	s.log.Info("Password reset token issued",
		zap.String("user_id", user.ID.String()),
		zap.Time("expires_at", expiresAt))
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.reset_password")
	defer func() { endSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationErr(errs)
	}

	now := s.now()
	digest := security.DigestOf(req.Token)

	// 1. Cari token yang masih berlaku
	user, err := s.users.FindByResetDigest(ctx, digest, now)
	if err != nil {
		utils.LogError(s.log, "Failed to find user by reset token", err)
		return storeErr("find_by_reset_digest", err)
	}
	if user == nil {
		s.log.Warn("Invalid or expired password reset token")
		return invalidToken()
	}

	// 2. Hash password baru
	hash, err := s.hashPassword(ctx, req.Password, "Password")
	if err != nil {
		return err
	}

	// 3. Pakai token sekali saja
	consumed, err := s.users.ConsumePasswordReset(ctx, user.ID, digest, hash, now)
	if err != nil {
		utils.LogError(s.log, "Failed to reset password", err, zap.String("user_id", user.ID.String()))
		return storeErr("consume_password_reset", err)
	}
	if !consumed {
		s.log.Warn("Password reset token already used", zap.String("user_id", user.ID.String()))
		return invalidToken()
	}

	s.metrics.AuthEvent(metrics.EventPasswordReset)
	s.log.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, req *request.VerifyEmailRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.verify_email")
	defer func() { endSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationErr(errs)
	}

	consumed, err := s.users.ConsumeEmailVerification(ctx, security.DigestOf(req.Token), s.now())
	if err != nil {
		utils.LogError(s.log, "Failed to verify email", err)
		return storeErr("consume_email_verification", err)
	}
	if !consumed {
		s.log.Warn("Invalid or expired email verification token")
		return invalidToken()
	}

	s.metrics.AuthEvent(metrics.EventEmailVerified)
	s.log.Info("Email verified")
	return nil
}

func (s *authService) RequestEmailVerification(ctx context.Context, req *request.ResendVerificationRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.request_email_verification")
	defer func() { endSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return validationErr(errs)
	}
	email := utils.NormalizeEmail(req.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		utils.LogError(s.log, "Failed to find user for verification", err, zap.String("email", email))
		return storeErr("find_by_email", err)
	}
	if user == nil || user.IsEmailVerified {
		return nil
	}

	token, digest, err := security.GenerateToken()
	if err != nil {
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.verifyTTL)
	if err := s.users.SetEmailVerificationToken(ctx, user.ID, digest, expiresAt, now); err != nil {
		utils.LogError(s.log, "Failed to store verification token", err, zap.String("user_id", user.ID.String()))
		return storeErr("set_email_verification_token", err)
	}

	s.deliver(ctx, notify.Notification{
		Email:     user.Email,
		Name:      user.Name,
		Token:     token,
		Purpose:   notify.PurposeEmailVerification,
		ExpiresAt: expiresAt,
	})
	s.metrics.AuthEvent(metrics.EventVerificationRequested)
	return nil
}

func (s *authService) VerifySession(ctx context.Context, token string) (_ *entity.User, err error) {
	ctx, span := tracer.Start(ctx, "auth.verify_session")
	defer func() { endSpan(span, err) }()

	claims, err := s.sessions.Parse(token, s.now())
	if err != nil {
		s.log.Debug("Session token rejected", zap.Error(err))
		return nil, invalidSession()
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, invalidSession()
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		utils.LogError(s.log, "Failed to load session user", err, zap.String("user_id", userID.String()))
		return nil, storeErr("find_by_id", err)
	}
	if user == nil {
		return nil, invalidSession()
	}

	// Password diganti setelah token dibuat
	if claims.ChangedAfter(user.PasswordChangedAt) {
		s.log.Info("Session predates password change", zap.String("user_id", userID.String()))
		return nil, invalidSession()
	}

	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordRequest) (_ *response.TokenResponse, err error) {
	ctx, span := tracer.Start(ctx, "auth.change_password")
	defer func() { endSpan(span, err) }()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationErr(errs)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		utils.LogError(s.log, "Failed to find user", err, zap.String("user_id", userID.String()))
		return nil, storeErr("find_by_id", err)
	}
	if user == nil {
		return nil, invalidSession()
	}

	if !s.hasher.Verify(ctx, req.CurrentPassword, user.PasswordHash) {
		s.log.Warn("Wrong current password on change", zap.String("user_id", userID.String()))
		return nil, invalidCredentials()
	}

	hash, err := s.hashPassword(ctx, req.NewPassword, "NewPassword")
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		utils.LogError(s.log, "Failed to update password", err, zap.String("user_id", userID.String()))
		return nil, storeErr("update_password", err)
	}

	token, expiresAt, err := s.sessions.Issue(user.ID, now)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent(metrics.EventPasswordChanged)
	s.log.Info("Password changed", zap.String("user_id", userID.String()))
	return &response.TokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *authService) hashPassword(ctx context.Context, password, field string) (string, error) {
	hash, err := s.hasher.Hash(ctx, password)
	switch {
	case errors.Is(err, security.ErrEmptyPassword):
		return "", fieldErr(field, "This field is required")
	case errors.Is(err, security.ErrPasswordTooLong):
		return "", fieldErr(field, "Must be at most 72 bytes")
	case err != nil:
		s.log.Error("Failed to hash password", zap.Error(err))
		return "", oops.Code("PASSWORD_HASH_FAILED").Wrapf(err, "hash password")
	}
	return hash, nil
}

func (s *authService) deliver(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Error("Failed to hand off notification",
			zap.Error(err),
			zap.String("email", n.Email),
			zap.String("purpose", string(n.Purpose)))
	}
}
