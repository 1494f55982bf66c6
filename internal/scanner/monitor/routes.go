package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/beacon.report/internal/httputil"
	"github.com/banshee-data/beacon.report/internal/scanner/l4registration"
	"github.com/banshee-data/beacon.report/internal/scanner/storage/sqlite"
)

// ResultFunc returns the most recent reconstruction, or nil if there is none.
type ResultFunc func() *l4registration.Result

// AttachDebugRoutes mounts the /debug/ pages on mux. The chart, plot and
// result pages show whatever latest returns; tailsql and run listings are
// mounted only when db is non-nil.
func AttachDebugRoutes(mux *http.ServeMux, db *sqlite.DB, latest ResultFunc) error {
	debug := tsweb.Debugger(mux)

	if db != nil {
		tsql, err := tailsql.NewServer(tailsql.Options{
			RoutePrefix: "/debug/tailsql/",
		})
		if err != nil {
			return fmt.Errorf("failed to create tailsql server: %w", err)
		}
		tsql.SetDB("sqlite://beacons.db", db.DB, &tailsql.DBOptions{
			Label: "Beacon runs",
		})
		debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
		debug.Handle("runs", "Saved reconstructions (JSON; ?id= for one run, ?limit= to cap the list)", runsHandler(sqlite.NewRunStore(db)))
	}

	debug.Handle("result", "Latest reconstruction (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := latest()
		if res == nil {
			httputil.WriteJSONError(w, http.StatusNotFound, ErrNoResult.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}))

	debug.Handle("chart", "Latest reconstruction as an XY scatter", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := latest()
		if res == nil {
			httputil.WriteJSONError(w, http.StatusNotFound, ErrNoResult.Error())
			return
		}
		var buf bytes.Buffer
		if err := RenderChart(&buf, r.URL.Query().Get("title"), res); err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}))

	debug.Handle("plot.png", "Latest reconstruction as a static PNG", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := latest()
		if res == nil {
			httputil.WriteJSONError(w, http.StatusNotFound, ErrNoResult.Error())
			return
		}
		var buf bytes.Buffer
		if err := WritePlotPNG(&buf, res); err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))

	return nil
}

func runsHandler(store *sqlite.RunStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			httputil.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}

		if id := r.URL.Query().Get("id"); id != "" {
			run, err := store.GetRun(r.Context(), id)
			switch {
			case errors.Is(err, sqlite.ErrRunNotFound):
				httputil.WriteJSONError(w, http.StatusNotFound, err.Error())
			case err != nil:
				httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			default:
				httputil.WriteJSON(w, http.StatusOK, run)
			}
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				httputil.WriteJSONError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}
		runs, err := store.ListRuns(r.Context(), limit)
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runs == nil {
			runs = []*sqlite.Run{}
		}
		httputil.WriteJSON(w, http.StatusOK, runs)
	})
}
