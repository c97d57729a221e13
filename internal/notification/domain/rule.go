package domain

import (
	"strings"
	"time"

	orderdomain "github.com/printhouse/printflow/internal/order/domain"
)

type Scope string

const (
	ScopeDirect Scope = "direct"
	ScopeChat   Scope = "chat"
	ScopeAll    Scope = "all"
)

func (s Scope) Matches(source orderdomain.Source) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeDirect:
		return source == orderdomain.SourceDirect
	case ScopeChat:
		return source == orderdomain.SourceChat
	}
	return false
}

type Rule struct {
	ID         int64
	Scope      Scope
	FromStatus *orderdomain.Status
	ToStatus   orderdomain.Status
	DelayHours *int
	Template   string
	Enabled    bool
}

// Due reports whether the rule's delay (if any) has elapsed since the order
// was created.
func (r Rule) Due(createdAt, now time.Time) bool {
	if r.DelayHours == nil {
		return true
	}
	return now.Sub(createdAt) >= time.Duration(*r.DelayHours)*time.Hour
}

type LogStatus string

const (
	LogSent    LogStatus = "sent"
	LogFailed  LogStatus = "failed"
	LogPending LogStatus = "pending"
)

// Log rows are append-only; the existence of a row for
// (order id, channel, rule id) is the sole proof a rule already fired.
type Log struct {
	ID      int64
	OrderID int64
	Channel orderdomain.Source
	RuleID  int64
	Message string
	SentAt  time.Time
	Status  LogStatus
	Error   *string
}

// Render substitutes {placeholder} occurrences with literal values. Unknown
// placeholders are left as-is; missing values are the caller's concern.
func Render(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
