// Package audit writes the append-only security audit trail for the auth flows.
package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit/domain"
	auditrepo "github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/audit/repository"
	"github.com/Sumitbhoyar/bookstore-microservices-sub002/internal/server/middleware"
)

// Event types recorded by the auth flows. Security-relevant failures
// (lockouts, refresh reuse) are always recorded; successes at
// register/login/logout granularity.
const (
	EventRegister      = "auth.register"
	EventLoginSuccess  = "auth.login"
	EventLoginFailure  = "auth.login_failure"
	EventAccountLocked = "auth.account_locked"
	EventRefresh       = "auth.refresh"
	EventRefreshReuse  = "auth.refresh_reuse" // security incident
	EventLogout        = "auth.logout"
)

// ClientMeta carries per-request client attributes onto audit entries.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Recorder writes a single audit event. Write-only from the caller's
// perspective; best-effort, failures never affect the calling flow.
type Recorder interface {
	Record(ctx context.Context, accountID, eventType, description string, client ClientMeta)
}

// Logger implements Recorder using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Recorder that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record appends one audit entry. Errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, accountID, eventType, description string, client ClientMeta) {
	if l == nil || l.repo == nil {
		return
	}
	ip := client.IP
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.Entry{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		EventType:   eventType,
		Description: description,
		IPAddress:   ip,
		UserAgent:   client.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}
	cid, _ := middleware.GetCorrelationID(ctx)
	if cid != "" {
		entry.Metadata = fmt.Sprintf(`{"correlation_id":%q}`, cid)
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s (correlation_id=%s): %v", eventType, cid, err)
	}
}
