package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fairtable/internal/accounts"
	"fairtable/internal/live"
)

type TableHandlers struct {
	engine *live.Engine
	store  accounts.Store
}

func NewTableHandlers(engine *live.Engine, st accounts.Store) *TableHandlers {
	return &TableHandlers{engine: engine, store: st}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports process liveness. A halted table is reported but does not
// fail the check; halting is deliberate and a restart would not clear it.
func (h *TableHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := "none"
		if p, ok := h.store.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]any{"ok": false, "db": "down"})
				return
			}
			db = "up"
		}
		render.JSON(w, r, map[string]any{"ok": true, "db": db, "halted": h.engine.Halted()})
	}
}

func (h *TableHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricStateQueryTotal.Add(1)
		render.JSON(w, r, h.engine.View())
	}
}

func (h *TableHandlers) Recent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := h.engine.View()
		render.JSON(w, r, map[string]any{
			"table_id":  view.TableID,
			"game_kind": view.GameKind,
			"recent":    view.Recent,
		})
	}
}

func (h *TableHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricBalanceQueryTotal.Add(1)
		player := chi.URLParam(r, "player")
		bal, err := h.store.Balance(r.Context(), player)
		if errors.Is(err, accounts.ErrNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "unknown_account")
			return
		}
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		render.JSON(w, r, map[string]any{"player": player, "balance": bal})
	}
}

func (h *TableHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricLedgerQueryTotal.Add(1)
		player := chi.URLParam(r, "player")
		limit := ParseLimit(r, 50, 500)
		entries, err := h.store.Entries(r.Context(), player, limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if entries == nil {
			entries = []accounts.Entry{}
		}
		render.JSON(w, r, map[string]any{"player": player, "entries": entries})
	}
}
