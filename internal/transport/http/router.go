// Package httptransport is the read-side HTTP surface of the live server.
// Bets travel over the websocket endpoint; everything here is a GET.
package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"fairtable/internal/accounts"
	"fairtable/internal/ledger"
	"fairtable/internal/live"
	"fairtable/internal/ws"
)

func NewRouter(engine *live.Engine, wsSrv *ws.Server, st accounts.Store, adminKey string) *chi.Mux {
	tables := NewTableHandlers(engine, st)
	admin := NewAdminHandlers(ledger.New(st))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", tables.Health())

	// The upgrade hijacks the connection, so no request logger here.
	r.Get("/ws", wsSrv.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/state", tables.State())
		r.Get("/rounds/recent", tables.Recent())
		r.Get("/players/{player}/balance", tables.Balance())
		r.Get("/players/{player}/ledger", tables.Ledger())
		r.Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminKey))
			r.Post("/admin/topup", admin.Topup())
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
