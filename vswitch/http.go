package vswitch

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/teddymalhan/layer2-virtual-switch/config"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

// Http serves the switch state for inspection: summary, learned table,
// recent log records and pprof. Everything returned is a copy.
type Http struct {
	vswitch    *VSwitch
	listen     string
	adminToken string
	server     *http.Server
	router     *mux.Router
}

func NewHttp(v *VSwitch, c *config.Http) *Http {
	return &Http{
		vswitch:    v,
		listen:     c.Listen,
		adminToken: c.Token,
	}
}

func (h *Http) Initialize() {
	r := h.Router()
	if h.server == nil {
		h.server = &http.Server{
			Addr:         h.listen,
			Handler:      r,
			ReadTimeout:  5 * time.Minute,
			WriteTimeout: 10 * time.Minute,
		}
	}
	h.LoadRouter()
}

func (h *Http) PProf(r *mux.Router) {
	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

func (h *Http) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.IsAuth(r) {
			next.ServeHTTP(w, r)
		} else {
			w.Header().Set("WWW-Authenticate", "Basic")
			http.Error(w, "Authorization Required", http.StatusUnauthorized)
		}
	})
}

func (h *Http) Router() *mux.Router {
	if h.router == nil {
		h.router = mux.NewRouter()
		h.router.Use(h.Middleware)
	}
	return h.router
}

func (h *Http) LoadRouter() {
	router := h.Router()
	h.PProf(router)
	router.HandleFunc("/api/index", h.GetIndex).Methods("GET")
	router.HandleFunc("/api/mac", h.GetMacs).Methods("GET")
	router.HandleFunc("/api/config", h.GetConfig).Methods("GET")
	router.HandleFunc("/api/log", h.GetLog).Methods("GET")
}

func (h *Http) IsAuth(r *http.Request) bool {
	if h.adminToken == "" {
		return true
	}
	token, _, ok := r.BasicAuth()
	return ok && token == h.adminToken
}

func (h *Http) Start() {
	h.Initialize()
	libol.Info("Http.Start %s", h.listen)
	promise := &libol.Promise{
		First:  time.Second * 2,
		MaxInt: time.Minute,
		MinInt: time.Second * 10,
	}
	promise.Done(func() error {
		if err := h.server.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				return nil
			}
			libol.Error("Http.Start on %s: %s", h.listen, err)
			return err
		}
		return nil
	})
}

func (h *Http) Shutdown() {
	libol.Info("Http.Shutdown %s", h.listen)
	if h.server == nil {
		return
	}
	if err := h.server.Shutdown(context.Background()); err != nil {
		libol.Error("Http.Shutdown: %v", err)
	}
}

func ResponseJson(w http.ResponseWriter, v interface{}) {
	str, err := libol.Marshal(v, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(str)
}

type MacSchema struct {
	Address  string         `json:"address"`
	Endpoint libol.Endpoint `json:"endpoint"`
}

type IndexSchema struct {
	UpTime  int64            `json:"uptime"`
	Port    uint16           `json:"port"`
	Macs    []MacSchema      `json:"macs"`
	Record  map[string]int64 `json:"record"`
	Version string           `json:"version"`
}

func (h *Http) GetIndex(w http.ResponseWriter, r *http.Request) {
	ResponseJson(w, IndexSchema{
		UpTime:  h.vswitch.UpTime(),
		Port:    h.vswitch.Port(),
		Macs:    h.macs(),
		Record:  h.vswitch.Record(),
		Version: libol.Version,
	})
}

func (h *Http) macs() []MacSchema {
	table := h.vswitch.SnapshotTable()
	macs := make([]MacSchema, 0, len(table))
	for mac, ep := range table {
		macs = append(macs, MacSchema{
			Address:  mac.String(),
			Endpoint: ep,
		})
	}
	return macs
}

func (h *Http) GetMacs(w http.ResponseWriter, r *http.Request) {
	ResponseJson(w, h.macs())
}

func (h *Http) GetConfig(w http.ResponseWriter, r *http.Request) {
	ResponseJson(w, h.vswitch.Config())
}

func (h *Http) GetLog(w http.ResponseWriter, r *http.Request) {
	messages := make([]*libol.Message, 0, 128)
	for m := range libol.Logger.List() {
		if m == nil {
			break
		}
		messages = append(messages, m)
	}
	ResponseJson(w, messages)
}
