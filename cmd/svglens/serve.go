package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier9/svglens/dom"
	"github.com/atelier9/svglens/runner"
	"github.com/atelier9/svglens/settings"
	"github.com/atelier9/svglens/shield"
)

// serve runs the HTTP API until ctx is done. If AUTH_PASSWORD is set in the
// environment, every /v1 endpoint requires Basic Auth with that password.
func serve(ctx context.Context, logger *slog.Logger, run *runner.Runner, addr string) error {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		if pw := os.Getenv("AUTH_PASSWORD"); pw != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
			if err == nil {
				r.Use(basicAuth(hash))
			} else {
				logger.Error("serve: hash auth password", "error", err)
			}
		} else {
			logger.Warn("serve: AUTH_PASSWORD not set, API is unauthenticated")
		}

		r.Post("/enhance", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				HTML     string            `json:"html"`
				Settings *settings.Overlay `json:"settings,omitempty"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			doc, err := dom.ParseString(body.HTML)
			if err != nil {
				writeError(w, 400, fmt.Errorf("parse html: %w", err))
				return
			}
			snap := run.Snapshot()
			if body.Settings != nil {
				snap = settings.Merge(snap, *body.Settings)
				if err := snap.Validate(); err != nil {
					writeError(w, 422, err)
					return
				}
			}
			report, err := run.EnhanceOnceWith(doc, snap)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			html, err := dom.RenderString(doc)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]any{"html": html, "report": report})
		})

		r.Post("/detect", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				HTML string `json:"html"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, 400, err)
				return
			}
			doc, err := dom.ParseString(body.HTML)
			if err != nil {
				writeError(w, 400, fmt.Errorf("parse html: %w", err))
				return
			}
			report, err := run.DetectOnce(doc)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, report)
		})

		r.Get("/settings", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, run.Snapshot())
		})

		r.Put("/settings", func(w http.ResponseWriter, req *http.Request) {
			var over settings.Overlay
			if err := json.NewDecoder(req.Body).Decode(&over); err != nil {
				writeError(w, 400, err)
				return
			}
			snap, err := run.UpdateSettings(req.Context(), over)
			if err != nil {
				writeError(w, 422, err)
				return
			}
			writeJSON(w, 200, snap)
		})
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("serve: starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve: server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("serve: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func basicAuth(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, pw, ok := r.BasicAuth()
			if !ok || bcrypt.CompareHashAndPassword(hash, []byte(pw)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="svglens"`)
				writeJSON(w, 401, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
