package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Parknogyung/ticket-reservation/internal/model"
	"github.com/Parknogyung/ticket-reservation/internal/queue"
	"github.com/Parknogyung/ticket-reservation/internal/service"
	"github.com/Parknogyung/ticket-reservation/internal/store"
)

// SettlementHandler finalizes payments.  After a state change commits
// it publishes a settlement event to the broker; downstream consumers
// (notification, audit) feed off that stream.
type SettlementHandler struct {
	Coordinator *service.SettlementCoordinator
}

// NewSettlementHandler constructs a SettlementHandler.
func NewSettlementHandler(coord *service.SettlementCoordinator) *SettlementHandler {
	return &SettlementHandler{Coordinator: coord}
}

type confirmReq struct {
	ReservationIDs []uint64 `json:"reservation_ids"`
	PaymentRef     string   `json:"payment_ref"`
}

type refundReq struct {
	ReservationIDs []uint64 `json:"reservation_ids"`
	Reason         string   `json:"reason"`
}

type settlementResp struct {
	ReservationIDs []uint64 `json:"reservation_ids"`
	Status         string   `json:"status"`
}

// Confirm handles POST /v1/settlements/confirm.  Retrying with the
// same payment_ref is a no-op for reservations already settled under
// that reference.
func (h *SettlementHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.PaymentRef = strings.TrimSpace(req.PaymentRef)
	if len(req.ReservationIDs) == 0 || req.PaymentRef == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_ids and payment_ref required"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	settled, err := h.Coordinator.Confirm(ctx, req.ReservationIDs, req.PaymentRef, userID)
	if err != nil {
		return settlementError(c, err)
	}
	if len(settled) > 0 {
		publishSettled(ctx, queue.OutcomeConfirmed, settled, req.PaymentRef, "", userID)
	}
	return c.JSON(http.StatusOK, settlementResp{
		ReservationIDs: reservationIDs(settled),
		Status:         model.ReservationSuccess,
	})
}

// Refund handles POST /v1/settlements/refund.
func (h *SettlementHandler) Refund(c echo.Context) error {
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.ReservationIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_ids required"})
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	cancelled, err := h.Coordinator.Refund(ctx, req.ReservationIDs, req.Reason)
	if err != nil {
		return settlementError(c, err)
	}
	if len(cancelled) > 0 {
		publishSettled(ctx, queue.OutcomeRefunded, cancelled, "", req.Reason, userID)
	}
	return c.JSON(http.StatusOK, settlementResp{
		ReservationIDs: reservationIDs(cancelled),
		Status:         model.ReservationCancelled,
	})
}

func settlementError(c echo.Context, err error) error {
	var (
		conflict  *service.SettlementConflictError
		seatState *service.SeatStateError
	)
	switch {
	case errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "reservation belongs to another user"})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":          "reservation in conflicting state",
			"reservation_id": conflict.ReservationID,
			"status":         conflict.Status,
		})
	case errors.As(err, &seatState):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "seat in conflicting state",
			"seat_id": seatState.SeatID,
			"status":  seatState.Status,
		})
	case errors.Is(err, store.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, service.ErrLockTimeout):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seats are contended, retry shortly"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "settlement failed"})
	}
}

func reservationIDs(rs []model.Reservation) []uint64 {
	ids := make([]uint64, 0, len(rs))
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	return ids
}

// publishSettled emits the settlement event.  Publishing is best
// effort: the DB is the source of truth and a lost event only delays
// notifications.
func publishSettled(ctx context.Context, outcome string, rs []model.Reservation, paymentRef, reason string, userID uint64) {
	seatIDs := make([]uint64, 0, len(rs))
	for _, r := range rs {
		seatIDs = append(seatIDs, r.SeatID)
	}
	ev := queue.SettlementEvent{
		EventID:        uuid.NewString(),
		Outcome:        outcome,
		ReservationIDs: reservationIDs(rs),
		SeatIDs:        seatIDs,
		UserID:         userID,
		PaymentRef:     paymentRef,
		Reason:         reason,
		SettledAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := queue.PublishSettlement(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("settlement: publishing %s event: %v", outcome, err)
	}
}
