package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RepositorySuite struct {
	suite.Suite

	db   *gorm.DB
	repo billingdomain.Repository
	node *snowflake.Node
	ctx  context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())), &gorm.Config{})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(&billingdomain.BillingSnapshot{}))
	s.Require().NoError(db.Exec("DELETE FROM billing_snapshots").Error)

	node, err := snowflake.NewNode(1)
	s.Require().NoError(err)

	s.db = db
	s.repo = Provide()
	s.node = node
	s.ctx = context.Background()
}

func (s *RepositorySuite) snapshot(userID, checksum string, start time.Time, createdAt time.Time) *billingdomain.BillingSnapshot {
	return &billingdomain.BillingSnapshot{
		ID:          s.node.Generate(),
		UserID:      userID,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, -1),
		MilkType:    "cow",
		Segments:    datatypes.JSON(`[]`),
		TotalLiters: "0",
		Checksum:    checksum,
		CreatedAt:   createdAt,
	}
}

// TestReplaceSnapshot_KeepsOneRowPerPeriod validates replace semantics.
func (s *RepositorySuite) TestReplaceSnapshot_KeepsOneRowPerPeriod() {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 10, 1, 6, 0, 0, 0, time.UTC)

	first := s.snapshot("42", "aaa", start, now)
	s.Require().NoError(s.repo.ReplaceSnapshot(s.ctx, s.db, first))

	second := s.snapshot("42", "bbb", start, now.Add(time.Hour))
	s.Require().NoError(s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceSnapshot(s.ctx, tx, second)
	}))

	var count int64
	s.Require().NoError(s.db.Model(&billingdomain.BillingSnapshot{}).Count(&count).Error)
	s.Equal(int64(1), count)

	found, err := s.repo.FindSnapshot(s.ctx, s.db, "42", first.PeriodStart, first.PeriodEnd)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("bbb", found.Checksum)
	s.Equal(second.ID, found.ID)
}

func (s *RepositorySuite) TestFindSnapshot_Missing() {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	found, err := s.repo.FindSnapshot(s.ctx, s.db, "7", start, start)
	s.Require().NoError(err)
	s.Nil(found)
}

// TestListSnapshots_Pages validates keyset paging newest first.
func (s *RepositorySuite) TestListSnapshots_Pages() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		start := base.AddDate(0, i, 0)
		s.Require().NoError(s.repo.ReplaceSnapshot(s.ctx, s.db, s.snapshot("42", fmt.Sprintf("c%d", i), start, start.AddDate(0, 1, 0))))
	}
	s.Require().NoError(s.repo.ReplaceSnapshot(s.ctx, s.db, s.snapshot("99", "other", base, base)))

	page, err := s.repo.ListSnapshots(s.ctx, s.db, billingdomain.ListFilter{UserID: "42", Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page, 3, "limit+1 rows are read")
	s.Equal("c2", page[0].Checksum)
	s.Equal("c1", page[1].Checksum)

	last := page[1]
	rest, err := s.repo.ListSnapshots(s.ctx, s.db, billingdomain.ListFilter{
		UserID:          "42",
		Limit:           2,
		CursorCreatedAt: &last.CreatedAt,
		CursorID:        int64(last.ID),
	})
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal("c0", rest[0].Checksum)
}
