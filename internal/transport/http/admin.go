package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tessera-tickets/tessera/internal/app"
	"github.com/tessera-tickets/tessera/internal/domain"
)

// EventAdmin is the staff surface for event and ticket-type management.
type EventAdmin interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, []domain.TicketType, error)
	PublishEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
	CancelEvent(ctx context.Context, eventID uuid.UUID) (domain.Event, error)
	CreateTicketType(ctx context.Context, in app.CreateTicketTypeInput) (domain.TicketType, error)
	SetTicketTypeQuota(ctx context.Context, ticketTypeID uuid.UUID, quota int) (domain.TicketType, error)
	DeleteTicketType(ctx context.Context, ticketTypeID uuid.UUID) error
}

// HandleAdminEvents serves the staff event collection: create and list all
// statuses, drafts included.
func HandleAdminEvents(svc EventAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireStaff(w, r); !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, toEventResponse(event))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Title == "" {
				writeError(w, http.StatusBadRequest, codeEventTitleRequired, domain.ErrEventTitleRequired.Error())
				return
			}
			startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
				return
			}
			endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidEndsAt, "invalid ends_at format")
				return
			}

			event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
				Title:    req.Title,
				StartsAt: startsAt,
				EndsAt:   endsAt,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toEventResponse(event))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleAdminEventActions serves per-event staff actions: publish, cancel
// and the event's ticket-type collection.
func HandleAdminEventActions(svc EventAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr, action, ok := parseAdminEventPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		eventID, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid event id")
			return
		}

		switch action {
		case "publish":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			event, err := svc.PublishEvent(r.Context(), eventID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toEventResponse(event))
			return
		case "cancel":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			event, err := svc.CancelEvent(r.Context(), eventID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toEventResponse(event))
			return
		case "ticket-types":
			switch r.Method {
			case http.MethodGet:
				_, ticketTypes, err := svc.GetEvent(r.Context(), eventID)
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
			case http.MethodPost:
				var req createTicketTypeRequest
				dec := json.NewDecoder(r.Body)
				dec.DisallowUnknownFields()
				if err := dec.Decode(&req); err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
					return
				}
				price, err := decimal.NewFromString(req.Price)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidPrice, "invalid price format")
					return
				}

				ticketType, err := svc.CreateTicketType(r.Context(), app.CreateTicketTypeInput{
					EventID: eventID,
					Tier:    domain.TicketTier(req.Tier),
					Price:   price,
					Quota:   req.Quota,
				})
				if err != nil {
					writeDomainError(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, toTicketTypeResponse(ticketType))
				return
			default:
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
	}
}

// HandleAdminTicketTypes serves staff ticket-type mutations: quota changes
// and deletion of tiers that never sold.
func HandleAdminTicketTypes(svc EventAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr, action, ok := parseAdminTicketTypePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		ticketTypeID, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid ticket type id")
			return
		}

		switch action {
		case "quota":
			if r.Method != http.MethodPut {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			var req setQuotaRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			ticketType, err := svc.SetTicketTypeQuota(r.Context(), ticketTypeID, req.Quota)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toTicketTypeResponse(ticketType))
			return
		case "":
			if r.Method != http.MethodDelete {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			if err := svc.DeleteTicketType(r.Context(), ticketTypeID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
	}
}

func parseAdminEventPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "events" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

func parseAdminTicketTypePath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || len(parts) > 4 || parts[0] != "admin" || parts[1] != "ticket-types" {
		return "", "", false
	}
	if parts[2] == "" {
		return "", "", false
	}
	if len(parts) == 3 {
		return parts[2], "", true
	}
	if parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

type createEventRequest struct {
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

type createTicketTypeRequest struct {
	Tier  string `json:"tier"`
	Price string `json:"price"`
	Quota int    `json:"quota"`
}

type setQuotaRequest struct {
	Quota int `json:"quota"`
}
