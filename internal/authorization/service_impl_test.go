package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/milkseller/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

// TestAuthorize validates the seeded role grants.
func TestAuthorize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role   string
		object string
		action string
		want   error
	}{
		{"customer", ObjectRates, ActionRatesResolve, nil},
		{"customer", ObjectBilling, ActionBillingCompute, nil},
		{"customer", ObjectBilling, ActionBillingCustomer, ErrForbidden},
		{"customer", ObjectStatement, ActionStatementRender, ErrForbidden},
		{"customer", ObjectPrice, ActionPriceCreate, ErrForbidden},
		{"admin", ObjectBilling, ActionBillingCustomer, nil},
		{"admin", ObjectStatement, ActionStatementRender, nil},
		{"admin", ObjectPrice, ActionPriceCreate, nil},
		{"admin", ObjectPrice, "price.delete", ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role+"/"+tc.action, func(t *testing.T) {
			err := svc.Authorize(ctx, "01J7ABCDEF0000000000000000", tc.role, tc.object, tc.action)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// TestAuthorize_RoleChange validates that a key's previous role link is dropped.
func TestAuthorize_RoleChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	keyID := "01J7ABCDEF0000000000000001"

	require.NoError(t, svc.Authorize(ctx, keyID, "admin", ObjectPrice, ActionPriceCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, keyID, "customer", ObjectPrice, ActionPriceCreate), ErrForbidden)
}

func TestAuthorize_InvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "admin", ObjectRates, ActionRatesResolve), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "k", "owner", ObjectRates, ActionRatesResolve), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "k", "admin", "", ActionRatesResolve), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "k", "admin", ObjectRates, " "), ErrInvalidAction)
}

func TestNewEnforcer_SeedIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	first, err := NewEnforcer(conn)
	require.NoError(t, err)
	second, err := NewEnforcer(conn)
	require.NoError(t, err)

	a, err := first.GetPolicy()
	require.NoError(t, err)
	b, err := second.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, len(a), len(b))
}
