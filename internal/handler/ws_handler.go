package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lexprep/barprep-backend/internal/middleware"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/service"
	"github.com/lexprep/barprep-backend/internal/timer"
	ws "github.com/lexprep/barprep-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live exam session: countdown ticks flow out once per
// second, state mutations flow in, and expiry finishes the exam server-side
// whether or not the client is still behaving.
type WSHandler struct {
	catalogService *service.CatalogService
	runnerService  *service.RunnerService
	engine         *timer.Engine
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	catalogService *service.CatalogService,
	runnerService *service.RunnerService,
	engine *timer.Engine,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		catalogService: catalogService,
		runnerService:  runnerService,
		engine:         engine,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// RunnerStream godoc
// WS /ws/v1/runner/:examId/stream
// Upgrades to WebSocket for real-time countdown and answer saving.
func (h *WSHandler) RunnerStream(c *gin.Context) {
	actor := middleware.GetActor(c)
	exam, ok := resolveExamParam(c, h.catalogService)
	if !ok {
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Str("actor", actor.Key()).
		Str("exam_id", exam.ID.String()).
		Logger()

	// The socket only streams an existing session; the client must Start first.
	if _, err := h.runnerService.State(c.Request.Context(), actor, exam); err != nil {
		conn.WriteError("no active session for this exam")
		return
	}

	wsLog.Info().Msg("Taker connected")

	// Background context: the countdown must outlive the HTTP request scope
	// and keep ticking until the socket closes or the exam ends.
	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var countdown *timer.Countdown
	if total, timed := timer.ParseExamTime(exam.ExamTime); timed {
		countdown, err = h.engine.Activate(streamCtx, h.runnerService.AnchorKey(actor, exam), total,
			func(remaining time.Duration) {
				conn.WriteTyped(ws.TickResponse{
					Event:            ws.EventTick,
					RemainingSeconds: int64(remaining / time.Second),
					Level:            timer.Level(remaining),
				})
			},
			func() {
				h.finishExpired(streamCtx, conn, actor, exam, wsLog)
				cancel()
			},
		)
		if err != nil {
			wsLog.Error().Err(err).Msg("Failed to activate countdown")
			conn.WriteError("countdown unavailable")
			return
		}
		defer countdown.Stop()
	}

	for {
		data, err := conn.ReadRaw()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Info().Msg("Taker disconnected")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			conn.WriteError("invalid message")
			continue
		}

		switch envelope.Action {
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(data, &req); err != nil {
				conn.WriteError("invalid answer payload")
				continue
			}
			if _, err := h.runnerService.Answer(streamCtx, actor, exam, req.Position, req.OptionID); err != nil {
				conn.WriteError(err.Error())
				continue
			}
			conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "ok"})

		case ws.ActionBookmark:
			var req ws.BookmarkRequest
			if err := json.Unmarshal(data, &req); err != nil {
				conn.WriteError("invalid bookmark payload")
				continue
			}
			if _, err := h.runnerService.ToggleBookmark(streamCtx, actor, exam, req.Position); err != nil {
				conn.WriteError(err.Error())
				continue
			}
			conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "ok"})

		case ws.ActionPosition:
			var req ws.PositionRequest
			if err := json.Unmarshal(data, &req); err != nil {
				conn.WriteError("invalid position payload")
				continue
			}
			if _, err := h.runnerService.Navigate(streamCtx, actor, exam, req.Index); err != nil {
				conn.WriteError(err.Error())
				continue
			}
			conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Status: "ok"})

		case ws.ActionFinish:
			var req ws.FinishRequest
			if err := json.Unmarshal(data, &req); err != nil {
				conn.WriteError("invalid finish payload")
				continue
			}
			result, err := h.runnerService.Finish(streamCtx, actor, exam, req.Confirmed)
			if err != nil {
				// A refused finish (unconfirmed, still in progress) leaves
				// the session live; the countdown must keep ticking.
				conn.WriteError(err.Error())
				continue
			}
			if countdown != nil {
				countdown.Stop()
			}
			resp := ws.FinishedResponse{
				Event:     ws.EventFinished,
				Score:     result.Result.Percentage,
				Correct:   result.Result.Correct,
				Incorrect: result.Result.Incorrect,
			}
			if result.AttemptID != nil {
				resp.AttemptID = result.AttemptID.String()
			}
			conn.WriteTyped(resp)
			wsLog.Info().Float64("score", result.Result.Percentage).Msg("Exam finished over socket")
			return

		default:
			conn.WriteError("unknown action")
		}
	}
}

// finishExpired runs the finish sequence when the countdown hits zero. The
// expired countdown waives the confirmation requirement.
func (h *WSHandler) finishExpired(ctx context.Context, conn *ws.Conn, actor model.Actor, exam *model.Exam, wsLog zerolog.Logger) {
	result, err := h.runnerService.Finish(ctx, actor, exam, false)
	if err != nil {
		wsLog.Error().Err(err).Msg("Auto-finish on expiry failed")
		conn.WriteError("exam time expired, finish failed")
		return
	}
	resp := ws.FinishedResponse{
		Event:     ws.EventFinished,
		Score:     result.Result.Percentage,
		Correct:   result.Result.Correct,
		Incorrect: result.Result.Incorrect,
		Expired:   true,
	}
	if result.AttemptID != nil {
		resp.AttemptID = result.AttemptID.String()
	}
	conn.WriteTyped(resp)
	wsLog.Info().Float64("score", result.Result.Percentage).Msg("Exam auto-finished on expiry")
}
