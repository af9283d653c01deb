package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"loopLife/crud"
	"loopLife/domain"
	"loopLife/mail"
)

// Server provides most of the http functionality of this app, namely routing,
// request handling, and middleware. It resolves the current user once per
// request and hands it down to the services, which perform authorization and
// admission before anything is written.
type Server struct {
	router *mux.Router
	us     domain.UserService
	ls     domain.LoopService
	cs     domain.CommentService
	likes  domain.LikeService
	mailer mail.Mailer
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(isProd bool, csrfKey string, services *crud.Services, mailer mail.Mailer) *Server {
	s := &Server{
		router: mux.NewRouter(),
		us:     services.User,
		ls:     services.Loop,
		cs:     services.Comment,
		likes:  services.Like,
		mailer: mailer,
	}

	// Register routes of the auth system.
	s.registerAuthRoutes(s.router)

	// Register routes of the crud system.
	s.registerUserRoutes(s.router)
	s.registerLoopRoutes(s.router)
	s.registerLikeRoutes(s.router)
	s.registerCommentRoutes(s.router)

	// Set up middleware that needs to run on every request. The CSRF cookie
	// is only marked secure in production so local development over plain
	// http keeps working.
	csrfMw := csrf.Protect([]byte(csrfKey), csrf.Secure(isProd), csrf.Path("/"))
	s.router.Use(csrfMw, setContentTypeJSON, logRequest, s.authUser)
	return s
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// The logRequest middleware logs every request with its duration.
func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

// clientIP extracts the network origin of a request. Proxies put the real
// address into X-Forwarded-For or X-Real-IP, otherwise the peer address is
// all there is.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Run starts to listen and serve on the specified port.
func (s *Server) Run(port int) {
	addr := ":" + strconv.Itoa(port)
	log.WithField("addr", addr).Info("server listening")
	log.Fatal(http.ListenAndServe(addr, s.router))
}
