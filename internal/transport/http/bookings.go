package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tessera-tickets/tessera/internal/app"
	"github.com/tessera-tickets/tessera/internal/domain"
)

// BookingService is the application surface the booking endpoints drive.
type BookingService interface {
	Create(ctx context.Context, in app.CreateBookingInput) (domain.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error)
	Confirm(ctx context.Context, bookingID uuid.UUID, userID string) (domain.Booking, error)
	Refund(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID, userID string) (domain.BookingDetail, error)
	ListBookings(ctx context.Context, userID string) ([]domain.BookingDetail, error)
}

// HandleBookings serves the booking collection: create and list-own.
func HandleBookings(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			p, ok := requireUser(w, r)
			if !ok {
				return
			}

			var req createBookingRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			ticketTypeID, err := uuid.Parse(req.TicketTypeID)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidID, "invalid ticket_type_id")
				return
			}

			booking, err := svc.Create(r.Context(), app.CreateBookingInput{
				TicketTypeID: ticketTypeID,
				UserID:       p.userID,
				Quantity:     req.Quantity,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toBookingResponse(booking))
			return
		case http.MethodGet:
			p, ok := requireUser(w, r)
			if !ok {
				return
			}

			bookings, err := svc.ListBookings(r.Context(), p.userID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]bookingDetailResponse, 0, len(bookings))
			for _, detail := range bookings {
				resp = append(resp, toBookingDetailResponse(detail))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleBookingByID serves a single booking: read, and the lifecycle verbs
// cancel, confirm and refund. DELETE is refused outright so booking history
// survives for audits.
func HandleBookingByID(svc BookingService, logger *log.Logger) http.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		idStr, action, ok := parseBookingPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		bookingID, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "invalid booking id")
			return
		}

		if r.Method == http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "use the cancel endpoint to cancel bookings")
			return
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			p, ok := requireUser(w, r)
			if !ok {
				return
			}
			// Staff read across owners; customers only see their own.
			userID := p.userID
			if p.staff {
				userID = ""
			}
			detail, err := svc.GetBooking(r.Context(), bookingID, userID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toBookingDetailResponse(detail))
			return
		case "cancel":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			p, ok := requireUser(w, r)
			if !ok {
				return
			}
			booking, err := svc.Cancel(r.Context(), bookingID, p.userID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toBookingResponse(booking))
			return
		case "confirm":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			p, ok := requireUser(w, r)
			if !ok {
				return
			}
			booking, err := svc.Confirm(r.Context(), bookingID, p.userID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toBookingResponse(booking))
			return
		case "refund":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			p, ok := requireStaff(w, r)
			if !ok {
				return
			}
			booking, err := svc.Refund(r.Context(), bookingID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			logger.Printf("booking refunded booking_id=%s staff=%s", bookingID, p.userID)
			writeJSON(w, http.StatusOK, toBookingResponse(booking))
			return
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
	}
}

func parseBookingPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "bookings" || parts[1] == "" {
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

type createBookingRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type bookingResponse struct {
	ID           uuid.UUID  `json:"id"`
	TicketTypeID uuid.UUID  `json:"ticket_type_id"`
	UserID       string     `json:"user_id"`
	Quantity     int        `json:"quantity"`
	Status       string     `json:"status"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type bookingDetailResponse struct {
	bookingResponse
	Tier          string          `json:"tier"`
	Price         decimal.Decimal `json:"price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	EventID       uuid.UUID       `json:"event_id"`
	EventTitle    string          `json:"event_title"`
	EventStartsAt time.Time       `json:"event_starts_at"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		TicketTypeID: b.TicketTypeID,
		UserID:       b.UserID,
		Quantity:     b.Quantity,
		Status:       string(b.Status),
		ExpiresAt:    b.ExpiresAt,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func toBookingDetailResponse(d domain.BookingDetail) bookingDetailResponse {
	return bookingDetailResponse{
		bookingResponse: toBookingResponse(d.Booking),
		Tier:            string(d.Tier),
		Price:           d.Price,
		TotalPrice:      d.TotalPrice(),
		EventID:         d.EventID,
		EventTitle:      d.EventTitle,
		EventStartsAt:   d.EventStartsAt,
	}
}
