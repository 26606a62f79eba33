package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"captionkit-server-go/internal/domain/auth"
	"captionkit-server-go/internal/domain/caption"
	"captionkit-server-go/internal/domain/session"
	"captionkit-server-go/internal/platform/config"
	platformerrors "captionkit-server-go/internal/platform/errors"
	"captionkit-server-go/internal/platform/logging"
)

// Router runs the admission gate and upgrades accepted requests. Everything
// that can be decided from the request alone is rejected with a plain HTTP
// status before the upgrade; only provider dialing happens after.
type Router struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *session.Registry
	verifier *auth.AuthToken
	access   *auth.AccessChecker
	upgrader *websocket.Upgrader
}

// NewRouter constructs the websocket router. verifier and access may be nil
// when authentication is disabled.
func NewRouter(cfg *config.Config, registry *session.Registry, verifier *auth.AuthToken, access *auth.AccessChecker, logger *logging.Logger) *Router {
	timeout := cfg.Server.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Router{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		verifier: verifier,
		access:   access,
		upgrader: &websocket.Upgrader{
			HandshakeTimeout: timeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// Handle gates and upgrades one connection attempt.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	opts := caption.ParseOptions(req.URL.Query())
	if err := opts.Validate(); err != nil {
		r.reject(w, err)
		return
	}

	if r.cfg.Server.Auth.Enabled {
		identity, err := r.verifier.VerifyToken(req.URL.Query().Get("token"))
		if err != nil {
			r.reject(w, err)
			return
		}
		if _, err := r.access.CheckAccess(req.Context(), identity, opts.AccountID); err != nil {
			r.reject(w, err)
			return
		}
	}

	// the single-session rule is checked again inside AdmitOrAttach; this
	// early check turns the common case into a clean HTTP 409
	if existing, ok := r.registry.Get(opts.AccountID); ok && existing.State() != session.StateClientGrace {
		r.reject(w, platformerrors.New(platformerrors.KindConflict, "ws.handle",
			"account already has an active session"))
		return
	}

	socket, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.ErrorTag("WebSocket", "upgrade failed: %v", err)
		return
	}

	adm, err := r.registry.AdmitOrAttach(req.Context(), opts)
	if err != nil {
		r.logger.WarnTag("WebSocket", "%s admission failed: %v", opts.AccountID, err)
		r.closeRejected(socket, err)
		return
	}

	conn := NewConnection(adm.Session.ID, socket)
	if err := adm.Session.Attach(conn); err != nil {
		r.logger.WarnTag("WebSocket", "%s attach failed: %v", opts.AccountID, err)
		r.closeRejected(socket, err)
		return
	}

	r.logger.InfoTag("WebSocket", "%s connected session=%s reattached=%v",
		opts.AccountID, adm.Session.ID, adm.Reattached)

	go r.readLoop(conn, adm.Session)
}

func (r *Router) reject(w http.ResponseWriter, err error) {
	status := platformerrors.HTTPStatus(err)
	r.logger.WarnTag("WebSocket", "connection rejected (%d): %v", status, err)
	http.Error(w, err.Error(), status)
}

func (r *Router) closeRejected(socket *websocket.Conn, err error) {
	code := websocket.CloseInternalServerErr
	if platformerrors.KindOf(err) == platformerrors.KindConflict {
		code = websocket.ClosePolicyViolation
	}
	deadline := time.Now().Add(time.Second)
	_ = socket.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, err.Error()), deadline)
	_ = socket.Close()
}

// readLoop pumps client frames into the session until the socket dies, then
// reports how it died so the session can decide between close and grace.
func (r *Router) readLoop(conn *Connection, sess *session.Session) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			code, reason := closeDetails(err)
			sess.OnClientClosed(code, reason)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			sess.HandleClientMessage(payload, true)
		case websocket.TextMessage:
			sess.HandleClientMessage(payload, false)
		}
	}
}

func closeDetails(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
