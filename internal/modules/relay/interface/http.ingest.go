package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"mesaYaRelay/internal/modules/relay/application/port"
	"mesaYaRelay/internal/modules/relay/application/usecase"
	"mesaYaRelay/internal/modules/relay/domain"
	"mesaYaRelay/internal/shared/httputil"
)

var ingestErrors = httputil.NewErrorMapper().
	WithFormattedMapping(port.ErrGroupNotFound, http.StatusNotFound, sentenceCase).
	WithFormattedMapping(port.ErrPublishFailed, http.StatusInternalServerError, sentenceCase).
	WithFormattedMapping(domain.ErrBadRequest, http.StatusBadRequest, sentenceCase)

// NewIngestHTTPHandler serves POST /api/message. The body is a ServerMessage;
// every outcome is answered with a plain-text reason.
func NewIngestHTTPHandler(ingestUC *usecase.IngestUseCase) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body json.RawMessage
		if err := c.Bind(&body); err != nil {
			slog.Warn("ingest http: invalid request body", slog.Any("error", err))
			return c.String(http.StatusBadRequest, "Invalid request body")
		}
		msg, err := domain.DecodeServerMessage(body)
		if err == nil {
			_, err = ingestUC.Execute(c.Request().Context(), msg)
		}
		if err != nil {
			info := ingestErrors.Map(err)
			slog.Warn("ingest http: message rejected",
				slog.String("groupId", msg.GroupID),
				slog.Int("status", info.Status),
				slog.Any("error", err),
			)
			return c.String(info.Status, info.Message)
		}
		return c.String(http.StatusOK, "Message sent successfully")
	}
}

func sentenceCase(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
