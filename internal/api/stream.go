package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ml-api/internal/common"
	"ml-api/internal/loan"
)

const (
	streamReadLimit  = 64 * 1024
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// handleLoanStream predicts applications sent as websocket text frames. Each
// frame holds one application and gets exactly one reply: a prediction body
// or an error body, in the same shapes as POST /loan/predict.
func (s *Server) handleLoanStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.recorder.StreamConnectionsAdd(1)
	defer s.recorder.StreamConnectionsAdd(-1)

	requestID := RequestID(r.Context())
	log.Info().Str("request_id", requestID).Str("remote", r.RemoteAddr).Msg("stream opened")

	conn.SetReadLimit(streamReadLimit)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	// gorilla allows one concurrent writer, so replies and keep-alive pings
	// both go through this goroutine.
	done := make(chan struct{})
	defer close(done)
	stopped := make(chan struct{})
	writes := make(chan interface{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case v := <-writes:
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(v); err != nil {
					log.Debug().Err(err).Str("request_id", requestID).Msg("stream write failed")
					conn.Close()
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	served := 0
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("request_id", requestID).Msg("stream closed unexpectedly")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		if msgType != websocket.TextMessage {
			continue
		}

		var reply interface{}
		var p loan.Payload
		if err := json.Unmarshal(msg, &p); err != nil {
			s.recorder.ValidationFailuresInc(common.ModelLoan)
			reply = invalidInput(common.ErrMsgMalformedBody, []string{err.Error()})
		} else if resp, e := s.predictLoan(r.Context(), p); e != nil {
			reply = e
		} else {
			reply = resp
		}

		select {
		case writes <- reply:
			served++
		case <-stopped:
			// the writer closed the connection, so the next read fails
		}
	}

	log.Info().Str("request_id", requestID).Int("served", served).Msg("stream closed")
}
