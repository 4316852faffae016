package services

import (
	"errors"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

var (
	// ErrAdminDisabled is returned when no admin credentials are configured.
	ErrAdminDisabled = errors.New("admin access not configured")
	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AdminAuthService issues admin tokens.
type AdminAuthService struct {
	passwordHash string
	jwtSecret    string
	ttl          time.Duration
	logger       *logging.ChanneledLogger
}

// NewAdminAuthService creates a new admin auth service.
// When a password hash is configured without a signing secret, a random
// process-local secret is generated; tokens then die with the process.
func NewAdminAuthService(passwordHash, jwtSecret string, ttl time.Duration, logger *logging.ChanneledLogger) *AdminAuthService {
	if passwordHash != "" && jwtSecret == "" {
		key, err := security.GenerateSecureKey(64)
		if err != nil {
			logger.LogError(logging.ChannelAuth, "generate_signing_key", err, nil)
		} else {
			jwtSecret = key
			logger.Auth().Warn("JWT_SECRET not set, admin tokens signed with an ephemeral key")
		}
	}
	return &AdminAuthService{passwordHash: passwordHash, jwtSecret: jwtSecret, ttl: ttl, logger: logger}
}

// Enabled reports whether admin login is possible.
func (s *AdminAuthService) Enabled() bool {
	return s.passwordHash != "" && s.jwtSecret != ""
}

// Login checks the password and returns a signed admin token.
func (s *AdminAuthService) Login(password string) (string, error) {
	if !s.Enabled() {
		return "", ErrAdminDisabled
	}
	if !security.CheckPassword(s.passwordHash, password) {
		s.logger.Auth().Warn("Admin login failed")
		return "", ErrInvalidCredentials
	}
	token, err := security.GenerateAdminToken(s.jwtSecret, s.ttl)
	if err != nil {
		return "", err
	}
	s.logger.Auth().Info("Admin login succeeded")
	return token, nil
}

// Authorize validates an admin token.
func (s *AdminAuthService) Authorize(token string) error {
	if !s.Enabled() {
		return ErrAdminDisabled
	}
	return security.ValidateAdminToken(token, s.jwtSecret)
}
