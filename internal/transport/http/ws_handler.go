package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsWriteWait  = 10 * time.Second
)

// WSHandler drives the assessment wizard over a websocket, one session per connection.
type WSHandler struct {
	service  *app.AssessmentService
	upgrader websocket.Upgrader

	pingPeriod  time.Duration
	pingTimeout time.Duration
}

func NewWSHandler(service *app.AssessmentService, allowedOrigins []string) *WSHandler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		service:     service,
		pingPeriod:  wsPingPeriod,
		pingTimeout: wsWriteWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if allowAll || origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// stageMessage names the outbound message for the stage the session is in.
func stageMessage(view app.SessionView) outboundMessage {
	switch view.Stage {
	case app.StageAnsweringQuestion:
		return outboundMessage{Type: "question", Payload: view}
	case app.StageCompleted:
		return outboundMessage{Type: "completed", Payload: view}
	}
	return outboundMessage{Type: "personalInfo", Payload: view}
}

func errorMessage(err error) outboundMessage {
	p := errorPayload{Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		p.Fields = verr.Fields
	}
	return outboundMessage{Type: "error", Payload: p}
}

// ServeWS upgrades the request and runs the wizard. ?sessionId= resumes an existing session,
// otherwise a new one starts in the locale from ?locale= or Accept-Language.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var view app.SessionView
	if sessionID != "" {
		view, err = h.service.Get(ctx, sessionID)
	} else {
		view, err = h.service.Start(ctx, locale)
	}
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID = view.ID

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(h.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: session=%s: %v", sessionID, err)
					_ = conn.Close()
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.pingTimeout)); err != nil {
					log.Printf("ws ping error: session=%s: %v", sessionID, err)
					_ = conn.Close()
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// push gives up once the writer has stopped so a dead connection never blocks the read loop.
	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	push(stageMessage(view))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var next app.SessionView
		switch inbound.Type {
		case "personalInfo":
			var payload domain.Respondent
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid personalInfo payload"}})
				continue
			}
			next, err = h.service.SubmitPersonalInfo(ctx, sessionID, payload)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			next, err = h.service.Answer(ctx, sessionID, payload.QuestionID, payload.Value)
		case "back":
			next, err = h.service.Back(ctx, sessionID)
		default:
			push(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
			continue
		}
		if err != nil {
			push(errorMessage(err))
			continue
		}
		push(stageMessage(next))
		if next.Stage == app.StageCompleted {
			break
		}
	}

	close(send)
	<-writerDone
}
