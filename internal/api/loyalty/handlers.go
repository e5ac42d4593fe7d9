// internal/api/loyalty/handlers.go
package loyalty

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/courtbook/internal/api/apiutil"
	"github.com/codr1/courtbook/internal/api/authz"
	"github.com/codr1/courtbook/internal/apperr"
	"github.com/codr1/courtbook/internal/loyalty"
)

const loyaltyTimeout = 5 * time.Second

type Handler struct {
	svc *loyalty.Service
}

func NewHandler(svc *loyalty.Service) *Handler {
	return &Handler{svc: svc}
}

type adjustRequest struct {
	UserID int64  `json:"userId" validate:"required,gt=0"`
	Delta  int64  `json:"delta" validate:"ne=0"`
	Reason string `json:"reason" validate:"required,max=200"`
	// Reference makes a retried adjustment a no-op.
	Reference string `json:"reference" validate:"omitempty,max=100"`
}

type adjustResponse struct {
	Applied bool          `json:"applied"`
	Entry   loyalty.Entry `json:"entry"`
}

// GET /api/v1/loyalty/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), loyaltyTimeout)
	defer cancel()

	balance, err := h.svc.Balance(ctx, user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, balance)
}

// GET /api/v1/loyalty/ledger
func (h *Handler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	limit, err := apiutil.ParseLimit(r.URL.Query().Get("limit"), 0)
	if err != nil {
		apiutil.WriteError(w, r, apperr.Validation(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), loyaltyTimeout)
	defer cancel()

	entries, err := h.svc.Ledger(ctx, user.ID, limit)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, entries)
}

// POST /api/v1/loyalty/adjust
func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	if err := authz.RequireRole(r.Context(), authz.RoleAdmin); err != nil {
		if errors.Is(err, authz.ErrUnauthenticated) {
			apiutil.WriteError(w, r, apperr.Unauthenticated("Authentication required"))
			return
		}
		apiutil.WriteError(w, r, apperr.Forbidden("Admin access required"))
		return
	}
	admin := authz.UserFromContext(r.Context())

	var req adjustRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), loyaltyTimeout)
	defer cancel()

	entry, applied, err := h.svc.AddPoints(ctx, req.UserID, req.Delta, loyalty.SourceAdjustment, "adjust:"+reference, map[string]any{
		"reason":  req.Reason,
		"adminId": admin.ID,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !applied {
		status = http.StatusOK
	}
	apiutil.WriteJSON(w, status, adjustResponse{Applied: applied, Entry: entry})
}
