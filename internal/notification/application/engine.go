package application

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/printhouse/printflow/internal/notification/domain"
)

// candidateWindow bounds the candidate query: only orders updated this
// recently are considered. The scheduler must run at least this often or
// transitions can be missed. A transition-event feed would remove the window
// entirely; revisit if the polling cost or the missed-window risk grows.
const candidateWindow = time.Hour

// Engine evaluates notification rules against recent order-state changes and
// guarantees at-most-once delivery per (order, channel, rule) through the
// append-only log. A failure on one rule or one order never stops the pass.
type Engine struct {
	log        *slog.Logger
	rules      RuleRepository
	logs       LogRepository
	candidates CandidateRepository
	sender     Sender
	now        func() time.Time
}

func NewEngine(log *slog.Logger, rules RuleRepository, logs LogRepository, candidates CandidateRepository, sender Sender) *Engine {
	return &Engine{
		log:        log,
		rules:      rules,
		logs:       logs,
		candidates: candidates,
		sender:     sender,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) CheckOrderNotifications(ctx context.Context) error {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if err := e.checkRule(ctx, rule); err != nil {
			e.log.Error("rule pass failed", "rule_id", rule.ID, "err", err)
		}
	}
	return nil
}

func (e *Engine) checkRule(ctx context.Context, rule domain.Rule) error {
	now := e.now()
	candidates, err := e.candidates.ListCandidates(ctx, rule.Scope, rule.ToStatus, now.Add(-candidateWindow))
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if err := e.processCandidate(ctx, rule, c); err != nil {
			e.log.Error("candidate failed", "rule_id", rule.ID, "order_id", c.OrderID, "err", err)
		}
	}
	return nil
}

func (e *Engine) processCandidate(ctx context.Context, rule domain.Rule, c Candidate) error {
	// dedupe before anything else: an existing row means the rule already fired
	exists, err := e.logs.Exists(ctx, c.OrderID, c.Channel, rule.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if !rule.Due(c.CreatedAt, e.now()) {
		return nil
	}

	msg := e.render(rule, c)
	row := domain.Log{
		OrderID: c.OrderID,
		Channel: c.Channel,
		RuleID:  rule.ID,
		Message: msg,
		SentAt:  e.now(),
		Status:  domain.LogSent,
	}
	if err := e.sender.Send(ctx, c, rule.ID, msg); err != nil {
		detail := err.Error()
		row.Status = domain.LogFailed
		row.Error = &detail
	}
	if err := e.logs.Insert(ctx, row); err != nil {
		// a log row must exist in both outcomes; record the persistence
		// failure itself as a failed row, best effort
		detail := err.Error()
		row.Status = domain.LogFailed
		row.Error = &detail
		if err2 := e.logs.Insert(ctx, row); err2 != nil {
			return err2
		}
	}
	e.log.Info("notification processed", "rule_id", rule.ID, "order_id", c.OrderID, "outcome", string(row.Status))
	return nil
}

func (e *Engine) render(rule domain.Rule, c Candidate) string {
	customer := c.CustomerName
	if customer == "" {
		customer = "customer"
	}
	number := c.Number
	if number == "" {
		number = "-"
	}
	return domain.Render(rule.Template, map[string]string{
		"order_id":   itoa(c.OrderID),
		"number":     number,
		"customer":   customer,
		"status":     c.Status.Label(),
		"created_at": c.CreatedAt.Format("2006-01-02 15:04"),
		"updated_at": c.UpdatedAt.Format("2006-01-02 15:04"),
	})
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
