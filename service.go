package dvr

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/raft"
	"github.com/sirupsen/logrus"
)

// RequestTimeout bounds how long a single API request may wait on Raft.
const RequestTimeout = 5 * time.Second

// Service exposes the Store api as a http service.
type Service struct {
	store  *Store
	logger logrus.FieldLogger
}

// NewService creates a new Service backed by store.
func NewService(store *Store, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = discardLogger()
	}

	return &Service{
		store:  store,
		logger: logger,
	}
}

type routeBody struct {
	NextHop string `json:"next_hop"`
	Metric  int    `json:"metric"`
}

// ServeHTTP implements the http.Handler interface.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Destinations may contain '/', e.g., network prefixes.
	path := strings.SplitN(r.URL.Path, "/", 3)

	if len(path) < 2 {
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	switch path[1] {
	case "routes":
		if len(path) == 2 || path[2] == "" {
			s.routes(ctx, w, r)
			return
		}

		s.route(ctx, w, r, path[2])
	case "health":
		s.health(w)
	case "cluster":
		if len(path) != 3 || path[2] != "status" {
			http.NotFound(w, r)
			return
		}

		writeJSON(w, http.StatusOK, s.store.Stats())
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) routes(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		stale := query.Get("stale") == "true"

		var routes map[string]Route

		if nextHop, ok := query["next_hop"]; ok {
			via, err := s.store.RoutesVia(ctx, nextHop[0], stale)

			if err != nil {
				s.raftError(w, r, err)
				return
			}

			routes = make(map[string]Route, len(via))
			for _, route := range via {
				routes[route.Destination] = route
			}
		} else {
			var err error
			routes, err = s.store.GetAllRoutes(ctx, stale)

			if err != nil {
				s.raftError(w, r, err)
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"routes": routes,
		})
	case http.MethodPost:
		var route Route

		if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := s.store.AddRoute(ctx, route.Destination, route.NextHop, route.Metric); err != nil {
			s.raftError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"status":      "route added",
			"destination": route.Destination,
		})
	default:
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) route(ctx context.Context, w http.ResponseWriter, r *http.Request, destination string) {
	switch r.Method {
	case http.MethodGet:
		stale := r.URL.Query().Get("stale") == "true"
		route, ok, err := s.store.Lookup(ctx, destination, stale)

		if err != nil {
			s.raftError(w, r, err)
			return
		}

		if !ok {
			http.Error(w, "404 Route Not Found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, route)
	case http.MethodPut:
		var body routeBody

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := s.store.AddRoute(ctx, destination, body.NextHop, body.Metric); err != nil {
			s.raftError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, Route{
			Destination: destination,
			NextHop:     body.NextHop,
			Metric:      body.Metric,
		})
	case http.MethodDelete:
		if err := s.store.DeleteRoute(ctx, destination); err != nil {
			s.raftError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":      "route deleted",
			"destination": destination,
		})
	default:
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) health(w http.ResponseWriter) {
	status := s.store.Status()
	health := "healthy"

	if status.State != raft.Leader.String() {
		health = "follower"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     health,
		"node_id":    status.ID,
		"raft_state": status.State,
		"leader_id":  status.LeaderID,
	})
}

func (s *Service) raftError(w http.ResponseWriter, r *http.Request, err error) {
	switch err := err.(type) {
	case ErrNotLeader:
		if err.LeaderAddr == "" {
			http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		addr, perr := OffsetPort(err.LeaderAddr, HTTPPortOffset-RaftPortOffset)

		if perr != nil {
			s.logger.WithError(perr).WithField("leader", err.LeaderAddr).Warnln("Invalid leader address")
			http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		host, port, _ := net.SplitHostPort(addr)

		if host == "" {
			host = "localhost"
		}

		addr = net.JoinHostPort(host, port)
		url := "http://" + addr + r.URL.RequestURI()

		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	default:
		s.logger.WithError(err).Warnln("Request failed")
		http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
