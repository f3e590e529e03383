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

// AdmissionHandler exposes the waiting-room poll endpoint.  Clients
// call it repeatedly until can_enter flips to true, then proceed to
// the seat map.
type AdmissionHandler struct {
	Gate    *service.AdmissionGate
	Catalog *service.Catalog
}

// NewAdmissionHandler constructs an AdmissionHandler.
func NewAdmissionHandler(gate *service.AdmissionGate, catalog *service.Catalog) *AdmissionHandler {
	return &AdmissionHandler{Gate: gate, Catalog: catalog}
}

type entryResp struct {
	ConcertID            uint64 `json:"concert_id"`
	Rank                 int64  `json:"rank"`
	CanEnter             bool   `json:"can_enter"`
	EstimatedWaitSeconds int64  `json:"estimated_wait_seconds"`
}

// RequestEntry handles POST /v1/concerts/:id/queue.  Idempotent per
// user: re-polling keeps the original waiting position.
func (h *AdmissionHandler) RequestEntry(c echo.Context) error {
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

	if _, err := h.Catalog.ConcertByID(ctx, concertID); err != nil {
		if errors.Is(err, store.ErrConcertNotFound) {
			// An unknown or retired concert is a deny, not a failure:
			// the client keeps polling and is simply never admitted.
			return c.JSON(http.StatusOK, entryResp{ConcertID: concertID, Rank: -1, CanEnter: false})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	dec, err := h.Gate.RequestEntry(ctx, concertID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusOK, entryResp{
		ConcertID:            concertID,
		Rank:                 dec.Rank,
		CanEnter:             dec.CanEnter,
		EstimatedWaitSeconds: dec.EstimatedWaitSeconds,
	})
}
