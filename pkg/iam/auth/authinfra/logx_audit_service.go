package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/auth"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/Abraxas-365/lingua/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogLoginAttempt(ctx context.Context, userID kernel.UserID, method string, success bool, meta auth.RequestMeta) {
	entry := logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "login_attempt",
		"user_id":     userID,
		"method":      method,
		"success":     success,
		"ip":          meta.IP,
		"user_agent":  meta.UserAgent,
		"timestamp":   time.Now(),
	})
	if success {
		entry.Info("Audit: login attempt")
	} else {
		entry.Warn("Audit: login attempt")
	}
}

func (s *LogxAuditService) LogAccountCreated(ctx context.Context, userID kernel.UserID, method string, meta auth.RequestMeta) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "account_created",
		"user_id":     userID,
		"method":      method,
		"ip":          meta.IP,
		"timestamp":   time.Now(),
	}).Info("Audit: account created")
}

func (s *LogxAuditService) LogProviderChange(ctx context.Context, userID kernel.UserID, authType iam.AuthType, action string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "auth_provider_change",
		"user_id":     userID,
		"auth_type":   authType,
		"action":      action,
		"timestamp":   time.Now(),
	}).Info("Audit: authentication provider change")
}

func (s *LogxAuditService) LogSuperTokenIssued(ctx context.Context, userID kernel.UserID, method string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "super_token_issued",
		"user_id":     userID,
		"method":      method,
		"timestamp":   time.Now(),
	}).Info("Audit: super token issued")
}

func (s *LogxAuditService) LogImpersonation(ctx context.Context, adminID, userID kernel.UserID) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "impersonation",
		"admin_id":    adminID,
		"user_id":     userID,
		"timestamp":   time.Now(),
	}).Warn("Audit: administrator impersonating user")
}
