package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/caseforge/internal/model"
	"github.com/sells-group/caseforge/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a read-only status server for the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		mux := newServeMux(st)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serveStatus is the JSON body of GET /status.
type serveStatus struct {
	Phase  model.Phase             `json:"phase"`
	Status model.PhaseStatus       `json:"status"`
	Cycle  int                     `json:"cycle,omitempty"`
	Cases  map[model.CaseState]int `json:"cases"`
}

// newServeMux builds the read-only status routes over st.
func newServeMux(st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		cp, err := st.LoadCheckpoint(r.Context())
		if err != nil {
			http.Error(w, `{"error":"load checkpoint failed"}`, http.StatusInternalServerError)
			return
		}

		body := serveStatus{Cases: make(map[model.CaseState]int)}
		if cp != nil {
			body.Phase = cp.Phase
			body.Status = cp.Status
			body.Cycle = cp.Cycle
		}

		for _, state := range caseStates {
			recs, err := st.ListCases(r.Context(), store.CaseFilter{States: []model.CaseState{state}})
			if err != nil {
				http.Error(w, `{"error":"list cases failed"}`, http.StatusInternalServerError)
				return
			}
			if len(recs) > 0 {
				body.Cases[state] = len(recs)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	})

	return mux
}
