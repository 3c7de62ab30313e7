package milkapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	"github.com/smallbiznis/milkseller/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler, tokens Tokens, logout LogoutHandler) (*Client, *MemoryTokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewMemoryTokenStore()
	require.NoError(t, store.Save(context.Background(), tokens))
	client := New(Config{
		BaseURL:       srv.URL + "/api/",
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}, store, logout, WithLogger(zap.NewNop()))
	return client, store
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

const subscriptionBody = `{
	"id": 7,
	"is_active": true,
	"subscription_start_date": "2024-01-01",
	"subscription_end_date": null,
	"milk_type": "cow",
	"current_rate": "2.50",
	"rate_history": [
		{"id": "r1", "daily_liters": "1.50", "effective_from": "2024-01-01", "effective_to": "2024-09-15", "is_active": false},
		{"id": "r2", "daily_liters": "2.50", "effective_from": "2024-09-16T00:00:00Z", "effective_to": null, "is_active": true}
	]
}`

// TestSubscription_SendsBearerAndDecodes validates the auth header and DTO conversion.
func TestSubscription_SendsBearerAndDecodes(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(subscriptionBody))
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc", Refresh: "ref"}, nil)

	sub, err := client.Subscription(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer acc", gotAuth)
	assert.Equal(t, "7", sub.ID)
	assert.Equal(t, domain.MilkCow, sub.MilkType)
	require.Len(t, sub.RateHistory, 2)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.September, Day: 16}, sub.RateHistory[1].EffectiveFrom)
	assert.Nil(t, sub.RateHistory[1].EffectiveTo)
	assert.True(t, decimal.RequireFromString("1.5").Equal(sub.RateHistory[0].DailyLiters))
}

// TestSubscription_MessageOnlyMeansNoSubscription validates the `{message}` variant.
func TestSubscription_MessageOnlyMeansNoSubscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No active subscription"})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	_, err := client.Subscription(context.Background())
	assert.ErrorIs(t, err, ErrNoSubscription)
}

// TestRefreshOn401 validates one refresh followed by a single retry with the new token.
func TestRefreshOn401(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref", body["refresh"])
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid"})
			return
		}
		_, _ = w.Write([]byte(subscriptionBody))
	})
	client, store := newTestClient(t, mux, Tokens{Access: "stale", Refresh: "ref"}, nil)

	_, err := client.Subscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))

	tokens, _ := store.Load(context.Background())
	assert.Equal(t, Tokens{Access: "fresh", Refresh: "ref"}, tokens)
}

// TestRefreshFailureLogsOut validates that a failed refresh clears tokens and calls logout.
func TestRefreshFailureLogsOut(t *testing.T) {
	var logouts int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
	})
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})
	client, store := newTestClient(t, mux, Tokens{Access: "stale", Refresh: "ref"}, LogoutFunc(func(context.Context) error {
		atomic.AddInt32(&logouts, 1)
		return nil
	}))

	_, err := client.Subscription(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logouts))

	tokens, _ := store.Load(context.Background())
	assert.Equal(t, Tokens{}, tokens)
}

// TestSecond401AfterRefresh validates that a request is retried at most once.
func TestSecond401AfterRefresh(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "still no"})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "stale", Refresh: "ref"}, nil)

	_, err := client.Subscription(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestTokenExpired403 validates logout on each message key the upstream uses.
func TestTokenExpired403(t *testing.T) {
	for _, key := range []string{"detail", "error", "message"} {
		t.Run(key, func(t *testing.T) {
			var logouts int32
			mux := http.NewServeMux()
			mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusForbidden, map[string]string{key: "Token expired"})
			})
			client, store := newTestClient(t, mux, Tokens{Access: "acc", Refresh: "ref"}, LogoutFunc(func(context.Context) error {
				atomic.AddInt32(&logouts, 1)
				return errors.New("ignored")
			}))

			_, err := client.Subscription(context.Background())
			assert.ErrorIs(t, err, ErrSessionExpired)
			assert.Equal(t, int32(1), atomic.LoadInt32(&logouts))
			tokens, _ := store.Load(context.Background())
			assert.Empty(t, tokens.Access)
		})
	}
}

// TestForbiddenWithoutExpiry validates that other 403s surface as APIError.
func TestForbiddenWithoutExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/users/9/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Admins only"})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	_, err := client.User(context.Background(), "9")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Admins only", apiErr.Message)
}

// TestGetRetriesOn5xx validates retries for idempotent reads.
func TestGetRetriesOn5xx(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(subscriptionBody))
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	_, err := client.Subscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestPostIsNotRetried validates that writes fail on the first 5xx.
func TestPostIsNotRetried(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/update-rate/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	_, err := client.UpdateRate(context.Background(), UpdateRateRequest{
		NewDailyLiters: decimal.RequireFromString("2.5"),
		EffectiveFrom:  civil.Date{Year: 2024, Month: time.October, Day: 1},
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestNotFound validates the 404 sentinel.
func TestNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux(), Tokens{Access: "acc"}, nil)
	_, err := client.User(context.Background(), "404")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestUpdateRate_Validation validates quantity and date checks before any request is sent.
func TestUpdateRate_Validation(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/update-rate/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "3.00", body["new_daily_liters"])
		assert.Equal(t, "2024-10-01", body["effective_from"])
		writeJSON(w, http.StatusOK, map[string]any{
			"message":        "Rate updated successfully!",
			"effective_from": "2024-10-01",
			"new_rate":       map[string]any{"id": 12, "daily_liters": "3.00", "effective_from": "2024-10-01", "effective_to": nil, "is_active": true},
		})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)
	date := civil.Date{Year: 2024, Month: time.October, Day: 1}

	for _, liters := range []string{"0", "0.25", "10.5", "1.3", "-1"} {
		_, err := client.UpdateRate(context.Background(), UpdateRateRequest{
			NewDailyLiters: decimal.RequireFromString(liters),
			EffectiveFrom:  date,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, liters)
		assert.Equal(t, "daily_liters", vErr.Fields["new_daily_liters"])
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}

	_, err := client.UpdateRate(context.Background(), UpdateRateRequest{NewDailyLiters: decimal.NewFromInt(3)})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "required", vErr.Fields["effective_from"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	resp, err := client.UpdateRate(context.Background(), UpdateRateRequest{
		NewDailyLiters: decimal.NewFromInt(3),
		EffectiveFrom:  date,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.NewRate)
	assert.Equal(t, "12", resp.NewRate.ID)
	assert.Equal(t, date, resp.EffectiveFrom)
}

func TestValidDailyLiters(t *testing.T) {
	for _, ok := range []string{"0.5", "1", "2.50", "10"} {
		assert.True(t, ValidDailyLiters(decimal.RequireFromString(ok)), ok)
	}
	for _, bad := range []string{"0.4", "10.5", "1.25", "0"} {
		assert.False(t, ValidDailyLiters(decimal.RequireFromString(bad)), bad)
	}
}

// TestBillingReport validates query params and delivery conversion.
func TestBillingReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/billing-report/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("user_id"))
		assert.Equal(t, "2024-09-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-09-30", r.URL.Query().Get("end_date"))
		_, _ = w.Write([]byte(`{
			"user": {"id": 42, "name": "Asha", "phone": "+919876543210"},
			"billing_period": {"start_date": "2024-09-01", "end_date": "2024-09-30"},
			"total_days_delivered": 2,
			"total_liters_delivered": 3.5,
			"total_amount": null,
			"deliveries": [
				{"id": 1, "delivery_date": "2024-09-01", "scheduled_liters": "1.50", "actual_liters": "2.00", "status": "delivered", "rate_applied": "r1"},
				{"id": 2, "delivery_date": "2024-09-02", "scheduled_liters": "1.50", "actual_liters": "", "status": "skipped", "rate_applied": null, "reason": "traveling"}
			]
		}`))
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	report, err := client.BillingReport(context.Background(), "42",
		civil.Date{Year: 2024, Month: time.September, Day: 1},
		civil.Date{Year: 2024, Month: time.September, Day: 30})
	require.NoError(t, err)

	assert.Equal(t, "Asha", report.User.Name)
	assert.False(t, report.TotalAmount.Valid)
	require.Len(t, report.Deliveries, 2)
	assert.True(t, report.Deliveries[0].ActualLiters.Valid)
	assert.Equal(t, "r1", report.Deliveries[0].RateID)
	assert.Equal(t, "42", report.Deliveries[0].UserID)
	assert.False(t, report.Deliveries[1].ActualLiters.Valid)
	assert.Equal(t, domain.DeliverySkipped, report.Deliveries[1].Status)
	assert.Equal(t, "traveling", report.Deliveries[1].Reason)
}

// TestMalformedDateIsReported validates that conversion errors name the field.
func TestMalformedDateIsReported(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/users/5/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 5, "full_name": "Ravi", "subscription": {
			"id": 3, "subscription_start_date": "2024-01-01", "milk_type": "buffalo", "current_rate": "1",
			"rate_history": [{"id": 1, "daily_liters": "1", "effective_from": "01/02/2024"}]
		}}`))
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	_, err := client.User(context.Background(), "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
	assert.Contains(t, err.Error(), "subscription.rate_history[0].effective_from")
}

// TestLoginStoresTokensAndEnsureSession validates lazy login with service credentials.
func TestLoginStoresTokensAndEnsureSession(t *testing.T) {
	var logins int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		var body LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "+919876543210", body.PhoneNumber)
		writeJSON(w, http.StatusOK, map[string]any{
			"user":   map[string]any{"id": 1, "full_name": "Admin", "role": "admin"},
			"tokens": map[string]string{"access": "a1", "refresh": "r1"},
		})
	})
	mux.HandleFunc("/api/admin/schedule/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-09-02", r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`{"date": "2024-09-02", "total_deliveries": 1, "total_liters": 2,
			"deliveries": [{"user_id": 42, "user_name": "Asha", "user_phone": "9876543210", "scheduled_liters": 2, "rate_id": 9, "status": "scheduled"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := NewMemoryTokenStore()
	client := New(Config{BaseURL: srv.URL + "/api", PhoneNumber: "+919876543210", Password: "pw"}, store, nil)

	schedule, err := client.Schedule(context.Background(), civil.Date{Year: 2024, Month: time.September, Day: 2})
	require.NoError(t, err)
	require.Len(t, schedule.Entries, 1)
	assert.Equal(t, "42", schedule.Entries[0].Delivery.UserID)
	assert.Equal(t, "9", schedule.Entries[0].Delivery.RateID)

	_, err = client.Schedule(context.Background(), civil.Date{Year: 2024, Month: time.September, Day: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

// TestBillingHistory validates the customer history conversion.
func TestBillingHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/billing-history/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"billing_period": {"start_date": "2024-09-01", "end_date": "2024-09-30"},
			"total_days_delivered": 30, "total_liters_delivered": 67.5, "total_amount": 4050,
			"rate_breakdown": [{"rate_id": "r1", "daily_liters": "1.50", "effective_from": "2024-09-01", "effective_to": "2024-09-15", "days_delivered": 15, "total_liters": 22.5}]}`))
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	history, err := client.BillingHistory(context.Background(),
		civil.Date{Year: 2024, Month: time.September, Day: 1},
		civil.Date{Year: 2024, Month: time.September, Day: 30})
	require.NoError(t, err)
	require.Len(t, history.Segments, 1)
	assert.True(t, history.TotalAmount.Valid)
	assert.True(t, decimal.NewFromInt(4050).Equal(history.TotalAmount.Decimal))
	require.NotNil(t, history.Segments[0].EffectiveTo)
}

// TestContextCancelStopsRetries validates that cancellation is not retried.
func TestContextCancelStopsRetries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Subscription(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// pinToday fixes the client's "today" to 2024-10-01 in Kolkata.
func pinToday(t *testing.T, c *Client) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	// 20:00 UTC on Sep 30 is already Oct 1 in Kolkata.
	WithClock(clock.NewFakeClock(time.Date(2024, 9, 30, 20, 0, 0, 0, time.UTC)), loc)(c)
}

// TestCreateSkip validates the request body, the decoded result and the local checks.
func TestCreateSkip(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/skip/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-10-01", body["skip_date"])
		assert.Equal(t, "traveling", body["reason"])
		assert.Equal(t, "visiting family", body["notes"])
		writeJSON(w, http.StatusCreated, map[string]any{
			"id": 31, "skip_date": "2024-10-01", "reason": "traveling", "notes": "visiting family",
			"created_at": "2024-09-30T19:00:00Z",
		})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)
	pinToday(t, client)
	today := civil.Date{Year: 2024, Month: time.October, Day: 1}

	cases := []struct {
		name  string
		in    CreateSkipRequest
		field string
		tag   string
	}{
		{"unknown reason", CreateSkipRequest{SkipDate: today, Reason: "bored"}, "reason", "oneof"},
		{"missing date", CreateSkipRequest{Reason: SkipHealth}, "skip_date", "required"},
		{"past date", CreateSkipRequest{SkipDate: today.AddDays(-1), Reason: SkipHealth}, "skip_date", "not_past"},
		{"long notes", CreateSkipRequest{SkipDate: today, Reason: SkipOther, Notes: strings.Repeat("n", maxSkipNotes+1)}, "notes", "max"},
	}
	for _, tc := range cases {
		_, err := client.CreateSkip(context.Background(), tc.in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, tc.name)
		assert.Equal(t, tc.tag, vErr.Fields[tc.field], tc.name)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	skip, err := client.CreateSkip(context.Background(), CreateSkipRequest{SkipDate: today, Reason: SkipTraveling, Notes: " visiting family "})
	require.NoError(t, err)
	assert.Equal(t, "31", skip.ID)
	assert.Equal(t, today, skip.SkipDate)
	assert.Equal(t, SkipTraveling, skip.Reason)
	assert.Equal(t, time.Date(2024, 9, 30, 19, 0, 0, 0, time.UTC), skip.CreatedAt.UTC())
}

// TestSkipLists validates the customer and admin listings and the range check.
func TestSkipLists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/skip/list/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-10-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-10-31", r.URL.Query().Get("end_date"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "s1", "skip_date": "2024-10-03", "reason": "health", "created_at": "2024-10-01T08:00:00Z"},
		})
	})
	mux.HandleFunc("/api/admin/skip-requests/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 9, "skip_date": "2024-10-04", "reason": "excess_stock", "user_name": "Asha Patil", "user_phone": "9876543210", "created_at": "2024-10-01T08:00:00Z"},
			{"id": 10, "skip_date": "04/10/2024", "reason": "other", "created_at": "2024-10-01T08:00:00Z"},
		})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)
	start := civil.Date{Year: 2024, Month: time.October, Day: 1}
	end := civil.Date{Year: 2024, Month: time.October, Day: 31}

	skips, err := client.Skips(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, skips, 1)
	assert.Equal(t, SkipHealth, skips[0].Reason)

	_, err = client.Skips(context.Background(), end, start)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "gtefield", vErr.Fields["end_date"])

	_, err = client.AdminSkips(context.Background(), start, civil.Date{})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "required", vErr.Fields["end_date"])

	// The second row carries a malformed date.
	_, err = client.AdminSkips(context.Background(), start, end)
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)
	assert.Contains(t, err.Error(), "skip[1].skip_date")
}

// TestUpdateAndCancelSkip validates partial updates and the DELETE call.
func TestUpdateAndCancelSkip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/skip/31/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{"reason": "health", "notes": "fever"}, body)
			writeJSON(w, http.StatusOK, map[string]any{"id": 31, "skip_date": "2024-10-02", "reason": "health", "notes": "fever"})
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, map[string]any{"message": "Skip request cancelled successfully!"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)
	pinToday(t, client)

	_, err := client.UpdateSkip(context.Background(), "31", UpdateSkipRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	bad := SkipReason("bored")
	_, err = client.UpdateSkip(context.Background(), "31", UpdateSkipRequest{Reason: &bad})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "oneof", vErr.Fields["reason"])

	past := civil.Date{Year: 2024, Month: time.September, Day: 30}
	_, err = client.UpdateSkip(context.Background(), "31", UpdateSkipRequest{SkipDate: &past})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "not_past", vErr.Fields["skip_date"])

	reason, notes := SkipHealth, "fever"
	skip, err := client.UpdateSkip(context.Background(), "31", UpdateSkipRequest{Reason: &reason, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "fever", skip.Notes)

	msg, err := client.CancelSkip(context.Background(), "31")
	require.NoError(t, err)
	assert.Equal(t, "Skip request cancelled successfully!", msg)

	_, err = client.CancelSkip(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// TestUpdateDeliveries validates per-delivery checks and the wire body.
func TestUpdateDeliveries(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/update-deliveries/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		var body struct {
			DeliveryDate string `json:"delivery_date"`
			Deliveries   []struct {
				UserID       string  `json:"user_id"`
				Status       string  `json:"status"`
				ActualLiters *string `json:"actual_liters"`
				Reason       *string `json:"reason"`
			} `json:"deliveries"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-10-01", body.DeliveryDate)
		require.Len(t, body.Deliveries, 2)
		require.NotNil(t, body.Deliveries[0].ActualLiters)
		assert.Equal(t, "1.75", *body.Deliveries[0].ActualLiters)
		assert.Nil(t, body.Deliveries[1].ActualLiters)
		require.NotNil(t, body.Deliveries[1].Reason)
		assert.Equal(t, "gate locked", *body.Deliveries[1].Reason)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Deliveries updated", "delivery_date": "2024-10-01"})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)
	day := civil.Date{Year: 2024, Month: time.October, Day: 1}

	_, err := client.UpdateDeliveries(context.Background(), UpdateDeliveriesRequest{
		DeliveryDate: day,
		Deliveries: []DeliveryUpdate{
			{UserID: "42", Status: "lost"},
			{UserID: "43", Status: domain.DeliveryDelivered},
			{Status: domain.DeliveryFailed},
		},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "oneof", vErr.Fields["deliveries[0].status"])
	assert.Equal(t, "required", vErr.Fields["deliveries[2].user_id"])

	_, err = client.UpdateDeliveries(context.Background(), UpdateDeliveriesRequest{
		DeliveryDate: day,
		Deliveries:   []DeliveryUpdate{{UserID: "43", Status: domain.DeliveryDelivered}},
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "required_if", vErr.Fields["deliveries[0].actual_liters"])

	_, err = client.UpdateDeliveries(context.Background(), UpdateDeliveriesRequest{DeliveryDate: day})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "required", vErr.Fields["deliveries"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	resp, err := client.UpdateDeliveries(context.Background(), UpdateDeliveriesRequest{
		DeliveryDate: day,
		Deliveries: []DeliveryUpdate{
			{UserID: "42", Status: domain.DeliveryDelivered, ActualLiters: decimal.NewNullDecimal(decimal.RequireFromString("1.75"))},
			{UserID: "43", Status: domain.DeliveryFailed, Reason: "gate locked"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Deliveries updated", resp.Message)
	assert.Equal(t, day, resp.DeliveryDate)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestSubscriptionCancelAndReactivate validates the two message-only calls.
func TestSubscriptionCancelAndReactivate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subscription/cancel/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Subscription cancelled"})
	})
	mux.HandleFunc("/api/subscription/reactivate/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Subscription reactivated"})
	})
	client, _ := newTestClient(t, mux, Tokens{Access: "acc"}, nil)

	msg, err := client.CancelSubscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Subscription cancelled", msg)

	msg, err = client.ReactivateSubscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Subscription reactivated", msg)
}
