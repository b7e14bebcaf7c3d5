package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/response"
	"github.com/isdmx/coderunner/sandbox"
)

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.config.Sandbox.MaxCodeLen+s.config.Sandbox.MaxInputLen)*maxEncodedRuneLen + bodySlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req sandbox.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Info("invalid execution request body",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err))

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			details := fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)
			writeReply(w, s.logger, response.Failure(http.StatusBadRequest, response.MsgInvalidBody, &details))
			return
		}
		writeReply(w, s.logger, response.Failure(http.StatusBadRequest, response.MsgInvalidBody, nil))
		return
	}

	outcome, err := s.executor.Execute(r.Context(), req)
	if err != nil {
		s.logger.Error("code execution failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("language", req.Language),
			zap.Error(err))
		writeReply(w, s.logger, response.FromError(err))
		return
	}

	writeReply(w, s.logger, response.FromOutcome(outcome))
}

func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.registry.Describe())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func writeReply(w http.ResponseWriter, logger *zap.Logger, reply response.Reply) {
	writeJSON(w, logger, reply.Status, reply.Body)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are gone already.
		logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}
