package route

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/grigorimaxim422/atom/config"
	"github.com/grigorimaxim422/atom/hooks"
	"github.com/grigorimaxim422/atom/internal/health"
	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/metrics"
	"github.com/grigorimaxim422/atom/types"
)

// Router is the inbound request server: it receives organic requests over
// HTTP and runs the admission hooks against them. Only hooks the dispatcher
// reports as installed are consulted, so an absent hook costs nothing per
// request and the baseline policy applies.
type Router struct {
	Config     config.Config     `inject:""`
	Logger     logger.Logger     `inject:""`
	Metrics    metrics.Metrics   `inject:""`
	Dispatcher *hooks.Dispatcher `inject:""`
	Health     health.Reporter   `inject:""`

	// versionStr is set on startup so that the router may answer HTTP
	// requests for the version
	versionStr string

	installed hooks.Table

	server *http.Server
	doneWG sync.WaitGroup
}

type submittedRequest struct {
	Sender  string                 `json:"sender"`
	Payload map[string]interface{} `json:"payload"`
}

func (r *Router) SetVersion(ver string) {
	r.versionStr = ver
}

// LnS spins up the listen and serve portion of the router. It should be
// called in a goroutine; Stop shuts the server down gracefully.
func (r *Router) LnS() {
	r.installed = r.Dispatcher.Installed()

	r.Metrics.Register("router_organic_accepted", "counter")
	r.Metrics.Register("router_organic_rejected", "counter")
	r.Metrics.Register("router_organic_blacklisted", "counter")

	muxxer := mux.NewRouter()

	muxxer.Use(r.setResponseHeaders)
	muxxer.Use(r.requestLogger)
	muxxer.Use(r.panicCatcher)

	muxxer.HandleFunc("/alive", r.alive).Name("local health")
	muxxer.HandleFunc("/ready", r.ready).Name("local readiness")
	muxxer.HandleFunc("/version", r.version).Name("report version info")

	// organic traffic is admitted through the hook dispatcher
	muxxer.HandleFunc("/1/organic", r.organic).Methods("POST").Name("organic")

	listenAddr, err := r.Config.GetListenAddr()
	if err != nil {
		r.Logger.Errorf("failed to get listen addr config: %s", err)
		return
	}

	r.Logger.Infof("Listening on %s", listenAddr)
	r.server = &http.Server{
		Addr:    listenAddr,
		Handler: muxxer,
	}

	r.doneWG.Add(1)
	go func() {
		defer r.doneWG.Done()

		err := r.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Errorf("failed to ListenAndServe: %s", err)
		}
	}()
}

func (r *Router) Stop() error {
	if r.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := r.server.Shutdown(ctx)
	if err != nil {
		return err
	}
	r.doneWG.Wait()
	return nil
}

func (r *Router) alive(w http.ResponseWriter, req *http.Request) {
	if r.Health != nil && !r.Health.IsAlive() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"source":"atom","alive":false}`))
		return
	}
	w.Write([]byte(`{"source":"atom","alive":true}`))
}

func (r *Router) ready(w http.ResponseWriter, req *http.Request) {
	if r.Health != nil && !r.Health.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"source":"atom","ready":false}`))
		return
	}
	w.Write([]byte(`{"source":"atom","ready":true}`))
}

func (r *Router) version(w http.ResponseWriter, req *http.Request) {
	w.Write([]byte(`{"source":"atom","version":"` + r.versionStr + `"}`))
}

// organic admits a single inbound request: verify, blacklist, and priority
// run first when installed, then the mandatory on-entry hook enqueues the
// sample. Hook errors are the inbound server's to surface; the scheduling
// core never sees them.
func (r *Router) organic(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		r.handlerReturnWithError(w, ErrPostBody, err)
		return
	}

	var submitted submittedRequest
	if err := json.Unmarshal(body, &submitted); err != nil {
		r.handlerReturnWithError(w, ErrJSONFailed, err)
		return
	}

	organicReq := &types.Request{
		Sender:   submitted.Sender,
		Received: time.Now(),
		Payload:  submitted.Payload,
	}

	if r.installed[hooks.HookVerify] && !r.Dispatcher.Verify(organicReq) {
		r.Metrics.IncrementCounter("router_organic_rejected")
		r.handlerReturnWithError(w, ErrNotVerified, errors.New("request failed verification"))
		return
	}

	if r.installed[hooks.HookBlacklist] {
		if blacklisted, reason := r.Dispatcher.Blacklist(organicReq); blacklisted {
			r.Metrics.IncrementCounter("router_organic_blacklisted")
			r.handlerReturnWithError(w, ErrBlacklisted, errors.New(reason))
			return
		}
	}

	if r.installed[hooks.HookPriority] {
		organicReq.Priority = r.Dispatcher.Priority(organicReq)
	}

	resp, err := r.Dispatcher.OnEntry(organicReq)
	if err != nil {
		r.handlerReturnWithError(w, ErrOnEntryFailed, err)
		return
	}

	r.Metrics.IncrementCounter("router_organic_accepted")
	out, err := json.Marshal(resp)
	if err != nil {
		r.handlerReturnWithError(w, ErrJSONBuildFailed, err)
		return
	}
	w.Write(out)
}
