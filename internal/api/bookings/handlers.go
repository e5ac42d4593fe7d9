// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"time"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/booking"
	"github.com/codr1/courtbook/internal/payments"
)

const bookingsQueryTimeout = 10 * time.Second

type Handler struct {
	svc *booking.Service
}

func NewHandler(svc *booking.Service) *Handler {
	return &Handler{svc: svc}
}

type createBookingRequest struct {
	CourtID     int64     `json:"courtId" validate:"required,gt=0"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	PaymentMode string    `json:"paymentMode" validate:"omitempty,oneof=direct gateway"`
}

type bookingResponse struct {
	booking.Booking
	Payment *booking.Payment `json:"payment,omitempty"`
	Order   *payments.Order  `json:"order,omitempty"`
}

// POST /api/v1/bookings
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req createBookingRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	result, err := h.svc.Create(ctx, user, booking.CreateRequest{
		CourtID:     req.CourtID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		PaymentMode: req.PaymentMode,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	payment := result.Payment
	apiutil.WriteJSON(w, http.StatusCreated, bookingResponse{
		Booking: result.Booking,
		Payment: &payment,
		Order:   result.Order,
	})
}

// GET /api/v1/bookings/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	b, err := h.svc.Get(ctx, user, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, b)
}

// PUT /api/v1/bookings/{id}/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	b, err := h.svc.Cancel(ctx, user, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, b)
}

// DELETE /api/v1/bookings/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, user, id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/v1/bookings/my
func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	limit, err := apiutil.ParseLimit(r.URL.Query().Get("limit"), 0)
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	list, err := h.svc.ListForUser(ctx, user, limit)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, list)
}

// GET /api/v1/bookings/owner/stats
func (h *Handler) HandleOwnerStats(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	stats, err := h.svc.OwnerStats(ctx, user)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, stats)
}

type createInvitesRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=10,dive,email"`
}

// POST /api/v1/bookings/{id}/invites
func (h *Handler) HandleCreateInvites(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	var req createInvitesRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	invites, err := h.svc.CreateInvites(ctx, user, id, req.Emails)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusCreated, invites)
}

// GET /api/v1/bookings/{id}/invites
func (h *Handler) HandleListInvites(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	invites, err := h.svc.ListInvites(ctx, user, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, invites)
}

type respondInviteRequest struct {
	Action string `json:"action" validate:"required,oneof=ACCEPT DECLINE"`
}

// POST /api/v1/bookings/invites/{token}/respond
func (h *Handler) HandleRespondInvite(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	var req respondInviteRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	invite, err := h.svc.RespondInvite(ctx, user, r.PathValue("token"), req.Action)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, invite)
}

// POST /api/v1/bookings/{id}/share-link
func (h *Handler) HandleShareLink(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	slug, err := h.svc.ShareLink(ctx, user, id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]string{"slug": slug})
}

// GET /api/v1/bookings/public/slug/{slug}
func (h *Handler) HandleShared(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), bookingsQueryTimeout)
	defer cancel()

	shared, err := h.svc.Shared(ctx, r.PathValue("slug"))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, shared)
}
