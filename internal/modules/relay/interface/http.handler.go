package transport

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"mesaYaRelay/internal/modules/relay/application/usecase"
	"mesaYaRelay/internal/modules/relay/domain"
	"mesaYaRelay/internal/modules/relay/infrastructure"
	"mesaYaRelay/internal/shared/auth"
	"mesaYaRelay/internal/shared/httputil"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// joinErrors maps join rejections. Rejections happen before the upgrade, so a
// rejected join never creates a group.
var joinErrors = httputil.NewErrorMapper().
	WithMapping(auth.ErrMissingGroup, http.StatusBadRequest, "Invalid query params").
	WithMapping(domain.ErrBadRequest, http.StatusBadRequest, "Invalid query params").
	WithMapping(auth.ErrMissingCredential, http.StatusUnauthorized, "Missing Authorization header").
	WithMapping(auth.ErrMalformedCredential, http.StatusUnauthorized, "Invalid Authorization header").
	WithMapping(auth.ErrUnauthorized, http.StatusUnauthorized, "Invalid token")

// WebsocketHandler upgrades accepted joins and runs their session until the
// connection ends.
type WebsocketHandler struct {
	joinUC   *usecase.JoinGroupUseCase
	registry *infrastructure.GroupRegistry
	session  infrastructure.SessionConfig
}

func NewWebsocketHandler(joinUC *usecase.JoinGroupUseCase, registry *infrastructure.GroupRegistry, session infrastructure.SessionConfig) *WebsocketHandler {
	return &WebsocketHandler{joinUC: joinUC, registry: registry, session: session}
}

// JoinByQuery serves /ws?group_id=&table_number=&role=.
func (h *WebsocketHandler) JoinByQuery(c echo.Context) error {
	member, err := h.joinUC.Open(c.Request().Context(), c.QueryParam("group_id"), c.QueryParam("table_number"), c.QueryParam("role"))
	if err != nil {
		return h.reject(c, err)
	}
	return h.serve(c, member)
}

// JoinByPath serves /ws/:group_id/:table_number[/:role].
func (h *WebsocketHandler) JoinByPath(c echo.Context) error {
	member, err := h.joinUC.Open(c.Request().Context(), c.Param("group_id"), c.Param("table_number"), c.Param("role"))
	if err != nil {
		return h.reject(c, err)
	}
	return h.serve(c, member)
}

// JoinWithToken serves /ws/token?group_id= with a bearer token whose claims
// supply the table number.
func (h *WebsocketHandler) JoinWithToken(c echo.Context) error {
	member, err := h.joinUC.Authenticated(c.Request().Context(), auth.AuthorizationHeader(c.Request()), c.QueryParam("group_id"))
	if err != nil {
		return h.reject(c, err)
	}
	return h.serve(c, member)
}

func (h *WebsocketHandler) reject(c echo.Context, err error) error {
	info := joinErrors.Map(err)
	slog.Warn("ws join rejected",
		slog.String("path", c.Path()),
		slog.String("ip", c.RealIP()),
		slog.String("requestId", c.Response().Header().Get(echo.HeaderXRequestID)),
		slog.Int("status", info.Status),
		slog.Any("error", err),
	)
	return c.String(info.Status, info.Message)
}

func (h *WebsocketHandler) serve(c echo.Context, member domain.Member) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("ws upgrade failed", slog.String("groupId", member.GroupID), slog.Any("error", err))
		return nil
	}
	session := infrastructure.NewSession(conn, h.registry, member, h.session)
	slog.Info("ws upgrade success",
		slog.String("sessionId", session.ID()),
		slog.String("groupId", member.GroupID),
		slog.Int("tableNumber", int(member.TableNumber)),
		slog.String("ip", c.RealIP()),
	)
	if err := session.Run(c.Request().Context()); err != nil {
		slog.Warn("ws session ended with error", slog.String("sessionId", session.ID()), slog.Any("error", err))
	}
	return nil
}
