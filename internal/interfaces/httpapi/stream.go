package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Frame types sent by the server.
const (
	FrameTypePosition = "position"
	FrameTypeError    = "error"
)

// StreamRequest is one client frame.
type StreamRequest struct {
	Asset string `json:"asset"`
}

// StreamFrame answers exactly one StreamRequest.
type StreamFrame struct {
	Type      string            `json:"type"`
	Position  *PositionResponse `json:"position,omitempty"`
	Error     *APIError         `json:"error,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

const streamWriteTimeout = 10 * time.Second

type StreamHandler struct {
	positions *PositionHandler
	upgrader  websocket.Upgrader
}

func NewStreamHandler(positions *PositionHandler) *StreamHandler {
	return &StreamHandler{
		positions: positions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleStream upgrades GET /v1/stream and serves lookups until the client
// disconnects. Frames are handled in order, one resolution per frame.
func (h *StreamHandler) HandleStream(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()
	for {
		var req StreamRequest
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("stream closed")
			}
			return nil
		}

		frame := h.answer(c, req)
		_ = ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := ws.WriteJSON(frame); err != nil {
			log.Debug().Err(err).Msg("stream write failed")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (h *StreamHandler) answer(c echo.Context, req StreamRequest) StreamFrame {
	now := h.positions.now()
	frame := StreamFrame{Timestamp: now.UnixMilli()}

	assetID, err := NormalizeAssetID(req.Asset)
	if err != nil {
		frame.Type = FrameTypeError
		frame.Error = NewValidationError("asset", err.Error())
		return frame
	}

	res := h.positions.resolver.Resolve(c.Request().Context(), assetID, now)
	if !res.Found {
		frame.Type = FrameTypeError
		frame.Error = NewNoPositionError(assetID, res.RateLimited())
		return frame
	}

	resp := h.positions.buildResponse(res, now)
	frame.Type = FrameTypePosition
	frame.Position = &resp
	return frame
}
