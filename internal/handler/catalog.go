package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Parknogyung/ticket-reservation/internal/service"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// CatalogHandler serves concert registration and browsing.  The seat
// map endpoint doubles as the admission funnel's activity signal: a
// user who can load seats is an active purchase session.
type CatalogHandler struct {
	Catalog *service.Catalog
	Gate    *service.AdmissionGate
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *service.Catalog, gate *service.AdmissionGate) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Gate: gate}
}

type createConcertReq struct {
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	SeatCount int       `json:"seat_count"`
}

type concertResp struct {
	ID       uint64    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
}

type concertListItem struct {
	ID             uint64    `json:"id"`
	Title          string    `json:"title"`
	StartsAt       time.Time `json:"starts_at"`
	AvailableSeats int64     `json:"available_seats"`
}

type seatResp struct {
	ID         uint64 `json:"id"`
	SeatNumber uint32 `json:"seat_number"`
	Status     string `json:"status"`
}

// Create handles POST /v1/concerts (ADMIN).  Seats are generated and
// numbered 1..seat_count in the same transaction as the concert row.
func (h *CatalogHandler) Create(c echo.Context) error {
	var req createConcertReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	concert, err := h.Catalog.RegisterConcert(ctx, req.Title, req.StartsAt, req.SeatCount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSeatCount) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_count must be positive"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create concert failed"})
	}
	return c.JSON(http.StatusCreated, concertResp{ID: concert.ID, Title: concert.Title, StartsAt: concert.StartsAt})
}

// List handles GET /v1/concerts with per-concert availability counts.
func (h *CatalogHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Catalog.ListConcerts(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]concertListItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, concertListItem{
			ID:             r.Concert.ID,
			Title:          r.Concert.Title,
			StartsAt:       r.Concert.StartsAt,
			AvailableSeats: r.AvailableSeats,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Seats handles GET /v1/concerts/:id/seats.  Loading the seat map
// marks the caller active in the funnel and removes them from the
// waiting queue.  When the funnel is severely over capacity the
// response carries queue_active=true so clients fall back to polling
// the queue endpoint instead of hammering the seat map.
func (h *CatalogHandler) Seats(c echo.Context) error {
	concertID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid concert id"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seats, err := h.Catalog.AvailableSeats(ctx, concertID)
	if err != nil {
		if errors.Is(err, store.ErrConcertNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "concert not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
	}

	if err := h.Gate.RegisterActive(ctx, concertID, userID); err != nil {
		// Admission bookkeeping must not block browsing.
		log.Printf("catalog: registering active session: %v", err)
	}
	queueActive, err := h.Gate.QueueActive(ctx, concertID)
	if err != nil {
		log.Printf("catalog: queue-active check: %v", err)
		queueActive = false
	}

	out := make([]seatResp, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatResp{ID: s.ID, SeatNumber: s.SeatNumber, Status: s.Status})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"concert_id":   concertID,
		"queue_active": queueActive,
		"seats":        out,
	})
}
