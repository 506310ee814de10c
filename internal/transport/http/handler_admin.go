package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fairtable/internal/accounts"
	"fairtable/internal/ledger"
)

type AdminHandlers struct {
	ledger *ledger.Ledger
}

func NewAdminHandlers(l *ledger.Ledger) *AdminHandlers {
	return &AdminHandlers{ledger: l}
}

// Topup credits an existing player's balance out of band. The reference id
// is the receive timestamp so repeated grants stay distinguishable in the
// ledger trail.
func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Player string `json:"player"`
			Amount uint64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Player == "" || body.Amount == 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		refID := strconv.FormatInt(time.Now().UnixNano(), 10)
		bal, err := h.ledger.Topup(r.Context(), body.Player, body.Amount, refID)
		if errors.Is(err, accounts.ErrNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "unknown_account")
			return
		}
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricTopupTotal.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "player": body.Player, "balance": bal})
	}
}
