package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Parknogyung/ticket-reservation/internal/service"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// ReservationHandler exposes the multi-seat reservation endpoint.
type ReservationHandler struct {
	Coordinator *service.ReservationCoordinator
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(coord *service.ReservationCoordinator) *ReservationHandler {
	return &ReservationHandler{Coordinator: coord}
}

type reserveReq struct {
	ConcertID uint64   `json:"concert_id"`
	SeatIDs   []uint64 `json:"seat_ids"`
}

type reserveResp struct {
	ReservationIDs []uint64 `json:"reservation_ids"`
	Status         string   `json:"status"`
}

// Reserve handles POST /v1/reservations.  All requested seats are
// reserved or none are; partial holds never leak out of a failed
// attempt.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ConcertID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "concert_id required"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	// The budget covers lock waits plus the transaction itself.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	ids, err := h.Coordinator.ReserveSeats(ctx, userID, req.ConcertID, req.SeatIDs)
	if err != nil {
		var unavailable *service.SeatUnavailableError
		switch {
		case errors.Is(err, service.ErrNoSeats):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids required"})
		case errors.Is(err, service.ErrLockTimeout):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seats are contended, retry shortly"})
		case errors.As(err, &unavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat no longer available", "seat_id": unavailable.SeatID})
		case errors.Is(err, store.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
		}
	}
	return c.JSON(http.StatusCreated, reserveResp{ReservationIDs: ids, Status: "PENDING"})
}
