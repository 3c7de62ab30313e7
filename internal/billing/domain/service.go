package domain

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/db/pagination"
)

// MaxPeriodDays caps a billing period at one leap year.
const MaxPeriodDays = 366

type Service interface {
	// Breakdown fetches a customer's subscription and deliveries upstream,
	// computes the breakdown and stores it as the period's snapshot.
	Breakdown(ctx context.Context, req BreakdownRequest) (*BreakdownResult, error)
	// Compute builds a breakdown from caller-supplied records without I/O beyond pricing.
	Compute(ctx context.Context, req ComputeRequest) (ratedomain.Breakdown, error)
	LatestSnapshot(ctx context.Context, userID string, start, end civil.Date) (*Snapshot, error)
	ListSnapshots(ctx context.Context, req ListSnapshotsRequest) (*ListSnapshotsResponse, error)
}

// Upstream is the part of the MilkSeller API billing reads from.
type Upstream interface {
	User(ctx context.Context, userID string) (milkapi.User, error)
	BillingReport(ctx context.Context, userID string, start, end civil.Date) (milkapi.BillingReport, error)
}

type BreakdownRequest struct {
	UserID string
	Start  civil.Date
	End    civil.Date
}

type ComputeRequest struct {
	History    []ratedomain.RateRecord     `json:"history"`
	Deliveries []ratedomain.DeliveryRecord `json:"deliveries"`
	Start      civil.Date                  `json:"start_date"`
	End        civil.Date                  `json:"end_date"`
	MilkType   ratedomain.MilkType         `json:"milk_type"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type BreakdownResult struct {
	Customer  Customer             `json:"customer"`
	MilkType  ratedomain.MilkType  `json:"milk_type"`
	Breakdown ratedomain.Breakdown `json:"breakdown"`
	Snapshot  SnapshotRef          `json:"snapshot"`
}

type SnapshotRef struct {
	ID       string `json:"id"`
	Checksum string `json:"checksum"`
}

// Snapshot is a stored breakdown decoded back into domain types.
type Snapshot struct {
	ID        string               `json:"id"`
	Customer  Customer             `json:"customer"`
	MilkType  ratedomain.MilkType  `json:"milk_type"`
	Breakdown ratedomain.Breakdown `json:"breakdown"`
	Checksum  string               `json:"checksum"`
	CreatedAt string               `json:"created_at"`
}

type ListSnapshotsRequest struct {
	UserID string
	pagination.Pagination
}

type ListSnapshotsResponse struct {
	Snapshots []Snapshot           `json:"snapshots"`
	PageInfo  *pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrInvalidUserID      = errors.New("invalid_user_id")
	ErrInvalidMilkType    = errors.New("invalid_milk_type")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrNoSubscription     = errors.New("no_subscription")
	ErrSnapshotNotFound   = errors.New("snapshot_not_found")
	ErrSnapshotInProgress = errors.New("snapshot_in_progress")
)
