package application

import (
	"context"
	"time"

	"github.com/printhouse/printflow/internal/notification/domain"
	orderdomain "github.com/printhouse/printflow/internal/order/domain"
)

type RuleRepository interface {
	ListEnabled(ctx context.Context) ([]domain.Rule, error)
}

// LogRepository is append-only: rows are inserted and never updated. The
// existence check on the (order, channel, rule) triple is the sole dedupe
// mechanism.
type LogRepository interface {
	Exists(ctx context.Context, orderID int64, channel orderdomain.Source, ruleID int64) (bool, error)
	Insert(ctx context.Context, l domain.Log) error
}

// Candidate is the slice of order state the engine needs to match and render.
type Candidate struct {
	OrderID      int64
	Channel      orderdomain.Source
	Number       string
	CustomerName string
	Status       orderdomain.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CandidateRepository selects orders in a rule's scope whose current status
// matches and whose last update falls after the given cutoff.
type CandidateRepository interface {
	ListCandidates(ctx context.Context, scope domain.Scope, status orderdomain.Status, updatedAfter time.Time) ([]Candidate, error)
}

// Sender hands the rendered message to the external delivery transport.
type Sender interface {
	Send(ctx context.Context, c Candidate, ruleID int64, message string) error
}
