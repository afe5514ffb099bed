package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tessera-tickets/tessera/internal/app"
	"github.com/tessera-tickets/tessera/internal/clock"
	"github.com/tessera-tickets/tessera/internal/domain"
	"github.com/tessera-tickets/tessera/internal/storage/postgres"
	"github.com/tessera-tickets/tessera/internal/testutil"
)

func TestAdminEventFlow_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	svc := app.NewEventService(postgres.NewEventRepository(pool), clock.NewFixed(now))

	mux := http.NewServeMux()
	mux.Handle("/admin/events", HandleAdminEvents(svc))
	mux.Handle("/admin/events/", HandleAdminEventActions(svc))
	mux.Handle("/admin/ticket-types/", HandleAdminTicketTypes(svc))
	mux.Handle("/events", HandleEvents(svc))
	mux.Handle("/events/", HandleEventByID(svc))

	staff := func(method, target, body string) *http.Request {
		var req *http.Request
		if body == "" {
			req = userRequest(method, target, "ops-7", nil)
		} else {
			req = userRequest(method, target, "ops-7", []byte(body))
		}
		req.Header.Set(userRoleHeader, roleStaff)
		return req
	}

	createBody := `{"title":"Winter Gala","starts_at":"` + now.Add(72*time.Hour).Format(time.RFC3339) + `","ends_at":"` + now.Add(76*time.Hour).Format(time.RFC3339) + `"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, staff(http.MethodPost, "/admin/events", createBody))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created eventResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != string(domain.EventDraft) {
		t.Fatalf("expected status DRAFT, got %s", created.Status)
	}

	// Drafts stay out of the public listing.
	publicRec := httptest.NewRecorder()
	mux.ServeHTTP(publicRec, httptest.NewRequest(http.MethodGet, "/events", nil))
	if publicRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", publicRec.Code)
	}
	var publicEvents []eventResponse
	if err := json.NewDecoder(publicRec.Body).Decode(&publicEvents); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(publicEvents) != 0 {
		t.Fatalf("expected no public events while draft, got %d", len(publicEvents))
	}

	ttBody := `{"tier":"STANDARD","price":"45.00","quota":100}`
	ttRec := httptest.NewRecorder()
	mux.ServeHTTP(ttRec, staff(http.MethodPost, "/admin/events/"+created.ID.String()+"/ticket-types", ttBody))
	if ttRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", ttRec.Code, ttRec.Body.String())
	}
	var tt ticketTypeResponse
	if err := json.NewDecoder(ttRec.Body).Decode(&tt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tt.EventID != created.ID {
		t.Fatalf("expected event id %s, got %s", created.ID, tt.EventID)
	}

	publishRec := httptest.NewRecorder()
	mux.ServeHTTP(publishRec, staff(http.MethodPost, "/admin/events/"+created.ID.String()+"/publish", ""))
	if publishRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", publishRec.Code, publishRec.Body.String())
	}
	var published eventResponse
	if err := json.NewDecoder(publishRec.Body).Decode(&published); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if published.Status != string(domain.EventPublished) {
		t.Fatalf("expected status PUBLISHED, got %s", published.Status)
	}

	listedRec := httptest.NewRecorder()
	mux.ServeHTTP(listedRec, httptest.NewRequest(http.MethodGet, "/events", nil))
	var listed []eventResponse
	if err := json.NewDecoder(listedRec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Winter Gala" {
		t.Fatalf("expected the published event in the listing, got %+v", listed)
	}

	availRec := httptest.NewRecorder()
	mux.ServeHTTP(availRec, httptest.NewRequest(http.MethodGet, "/events/"+created.ID.String()+"/available-tickets", nil))
	if availRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", availRec.Code)
	}
	var available []ticketTypeResponse
	if err := json.NewDecoder(availRec.Body).Decode(&available); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("expected 1 available tier, got %d", len(available))
	}
	if available[0].Available != 100 {
		t.Fatalf("expected 100 available, got %d", available[0].Available)
	}
	if !available[0].Price.Equal(decimal.RequireFromString("45.00")) {
		t.Fatalf("expected price 45.00, got %s", available[0].Price)
	}

	quotaRec := httptest.NewRecorder()
	mux.ServeHTTP(quotaRec, staff(http.MethodPut, "/admin/ticket-types/"+tt.ID.String()+"/quota", `{"quota":150}`))
	if quotaRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", quotaRec.Code, quotaRec.Body.String())
	}
	var resized ticketTypeResponse
	if err := json.NewDecoder(quotaRec.Body).Decode(&resized); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resized.Quota != 150 {
		t.Fatalf("expected quota 150, got %d", resized.Quota)
	}

	customerRec := httptest.NewRecorder()
	mux.ServeHTTP(customerRec, userRequest(http.MethodPost, "/admin/events", "alice", []byte(createBody)))
	if customerRec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for customer, got %d", customerRec.Code)
	}
}
