package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tessera-tickets/tessera/internal/domain"
)

// EventReader is the public, customer-facing event surface.
type EventReader interface {
	ListPublishedEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, []domain.TicketType, error)
	ListAvailableTicketTypes(ctx context.Context, eventID uuid.UUID) ([]domain.TicketType, error)
}

// HandleEvents lists events that are published and still upcoming.
func HandleEvents(svc EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		events, err := svc.ListPublishedEvents(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]eventResponse, 0, len(events))
		for _, event := range events {
			resp = append(resp, toEventResponse(event))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleEventByID serves one event with its ticket types, and the
// available-tickets sub-resource listing only tiers with open quota.
func HandleEventByID(svc EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr, action, ok := parseEventPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid event id")
			return
		}

		switch action {
		case "":
			event, ticketTypes, err := svc.GetEvent(r.Context(), eventID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toEventDetailResponse(event, ticketTypes))
			return
		case "available-tickets":
			ticketTypes, err := svc.ListAvailableTicketTypes(r.Context(), eventID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]ticketTypeResponse, 0, len(ticketTypes))
			for _, tt := range ticketTypes {
				resp = append(resp, toTicketTypeResponse(tt))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
	}
}

func parseEventPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "events" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type eventResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type eventDetailResponse struct {
	eventResponse
	TicketTypes []ticketTypeResponse `json:"ticket_types"`
}

type ticketTypeResponse struct {
	ID        uuid.UUID       `json:"id"`
	EventID   uuid.UUID       `json:"event_id"`
	Tier      string          `json:"tier"`
	Price     decimal.Decimal `json:"price"`
	Quota     int             `json:"quota"`
	Sold      int             `json:"sold"`
	Available int             `json:"available"`
	CreatedAt time.Time       `json:"created_at"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		Title:     e.Title,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Status:    string(e.Status),
		CreatedAt: e.CreatedAt,
	}
}

func toEventDetailResponse(e domain.Event, ticketTypes []domain.TicketType) eventDetailResponse {
	resp := eventDetailResponse{
		eventResponse: toEventResponse(e),
		TicketTypes:   make([]ticketTypeResponse, 0, len(ticketTypes)),
	}
	for _, tt := range ticketTypes {
		resp.TicketTypes = append(resp.TicketTypes, toTicketTypeResponse(tt))
	}
	return resp
}

func toTicketTypeResponse(tt domain.TicketType) ticketTypeResponse {
	return ticketTypeResponse{
		ID:        tt.ID,
		EventID:   tt.EventID,
		Tier:      string(tt.Tier),
		Price:     tt.Price,
		Quota:     tt.Quota,
		Sold:      tt.Sold,
		Available: tt.Available(),
		CreatedAt: tt.CreatedAt,
	}
}
