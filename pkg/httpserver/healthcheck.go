package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/logger"
)

// Check reports whether one dependency is usable.
type Check func(context.Context) error

// LivenessHandler always answers 200. It proves the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler runs every check concurrently under timeout and answers
// 200 when all pass, 503 otherwise. The body lists each check's outcome.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		results := make(map[string]string, len(names))
		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, name := range names {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				status := "ok"
				if err := check(ctx); err != nil {
					status = err.Error()
					log.WarnContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
				}
				mu.Lock()
				results[name] = status
				mu.Unlock()
			}(name, checks[name])
		}
		wg.Wait()

		code := http.StatusOK
		for _, status := range results {
			if status != "ok" {
				code = http.StatusServiceUnavailable
				break
			}
		}
		WriteJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": results})
	}
}

// WriteJSON writes v as a JSON body with status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
