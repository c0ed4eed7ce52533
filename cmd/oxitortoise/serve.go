package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"oxitortoise/internal/engine"
)

// server holds the one currently installed model. Installation is
// process-wide and serialised, so concurrent compile
// requests queue on this mutex rather than racing the installer.
type server struct {
	mu     sync.Mutex
	model  *engine.Model
	engine *engine.Engine
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the compile-and-run HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("listen")
			if addr == "" {
				addr = appCfg.Server.ListenAddr
			}
			if addr == "" {
				addr = ":9191"
			}

			s := &server{}
			r := chi.NewRouter()
			r.Use(middleware.Recoverer)
			r.Post("/compile", s.handleCompile)
			r.Get("/functions", s.handleFunctions)
			r.Post("/step/{name}", s.handleStep)

			logrus.WithField("listen", addr).Info("serve: listening")
			return http.ListenAndServe(addr, r)
		},
	}
	cmd.Flags().String("listen", "", "listen address (defaults to server.listen_addr)")
	return cmd
}

type entryJSON struct {
	Name string `json:"name"`
	Slot uint32 `json:"slot"`
}

func (s *server) handleCompile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, err := engine.Compile(r.Body)
	if err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}
	eng, err := engine.New(model, engineOptions())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	s.model, s.engine = model, eng

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":    entryList(eng),
		"wasm_bytes": len(model.Wasm.Bytes),
	})
}

func (s *server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		httpErrorMsg(w, http.StatusNotFound, "no model installed")
		return
	}
	writeJSON(w, http.StatusOK, entryList(s.engine))
}

func (s *server) handleStep(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		httpErrorMsg(w, http.StatusNotFound, "no model installed")
		return
	}
	name := chi.URLParam(r, "name")
	result, err := s.engine.RunStep(name)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":  result,
		"tick":    s.engine.World.Tick.Value(),
		"turtles": s.engine.World.Turtles.Count(),
	})
}

func entryList(eng *engine.Engine) []entryJSON {
	out := make([]entryJSON, 0, len(eng.Entries))
	for _, e := range eng.Entries {
		out = append(out, entryJSON{Name: e.Name, Slot: e.Slot})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("serve: encoding response")
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	logrus.WithError(err).Warn("serve: request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func httpErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
