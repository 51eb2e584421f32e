package transport

import (
	"github.com/labstack/echo/v4"

	"mesaYaRelay/internal/modules/relay/application/usecase"
)

type Routes struct {
	Websocket *WebsocketHandler
	IngestUC  *usecase.IngestUseCase
	ListUC    *usecase.ListGroupsUseCase
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	e.GET("/ws", r.Websocket.JoinByQuery)
	e.GET("/ws/token", r.Websocket.JoinWithToken)
	e.GET("/ws/:group_id/:table_number", r.Websocket.JoinByPath)
	e.GET("/ws/:group_id/:table_number/:role", r.Websocket.JoinByPath)
	e.POST("/api/message", NewIngestHTTPHandler(r.IngestUC))
	e.GET("/groups", NewGroupsHTTPHandler(r.ListUC))
	e.GET("/health", HealthHTTPHandler)
}
