package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/inbound-processor/endpoints"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/rs/zerolog"
)

/* HTTP layer DTOs for the inbound API
 * Separate from domain entities to avoid leaking internal structure
 */

// errorResponse is the body written for every rejected call
type errorResponse struct {
	Error string `json:"error"`
}

// endpointResponse represents an endpoint in the API. Secrets are never listed.
type endpointResponse struct {
	Name                  string   `json:"name"`
	Method                string   `json:"method"`
	Path                  string   `json:"path"`
	SignatureHeaderName   string   `json:"signature_header_name"`
	SignatureValidator    string   `json:"signature_validator"`
	InboundProfile        string   `json:"inbound_profile"`
	InboundDataModel      string   `json:"inbound_data_model"`
	ProcessInboundDataJob string   `json:"process_inbound_data_job"`
	StoreHeaders          []string `json:"store_headers"`
}

// postInbound handles the route of one endpoint
func postInbound(s Server, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := httplog.LogEntry(r.Context())

		cfg, err := s.Registry.Lookup(name)
		if err != nil {
			writeError(w, log, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
		call, err := NewCall(r, s.MaxUploadBytes)
		if err != nil {
			s.Notifier.InvalidMessage(r.Context(), name, err.Error(), call.Body)

			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			log.Warn().Str("endpoint", name).Err(err).Msg("invalid inbound message")
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		reply, err := s.Processor.Process(r.Context(), call, cfg)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeReply(w, reply)
	})
}

// getEndpoints handles GET /v1/endpoints
func getEndpoints(list []*endpoints.Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responses := make([]endpointResponse, 0, len(list))
		for _, e := range list {
			headers := []string{"*"}
			if !e.Settings.StoreHeaders.All() {
				headers = e.Settings.StoreHeaders.Names()
			}
			responses = append(responses, endpointResponse{
				Name:                  e.Name(),
				Method:                e.Method,
				Path:                  e.Path,
				SignatureHeaderName:   e.Settings.SignatureHeaderName,
				SignatureValidator:    e.Settings.SignatureValidator,
				InboundProfile:        e.Settings.InboundProfile,
				InboundDataModel:      e.Settings.InboundDataModel,
				ProcessInboundDataJob: e.Settings.ProcessInboundDataJob,
				StoreHeaders:          headers,
			})
		}

		writeJSON(w, http.StatusOK, responses)
	})
}

// writeError maps pipeline errors to status codes.
// A configuration error wins over a signature rejection it caused.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var procErr *inbound.ProcessingError
	switch {
	case inbound.IsConfigurationError(err):
		log.Error().Err(err).Msg("endpoint is misconfigured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "endpoint is misconfigured"})
	case errors.Is(err, inbound.ErrSignatureInvalid):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: inbound.ErrSignatureInvalid.Error()})
	case errors.As(err, &procErr):
		log.Error().Str("record_id", procErr.RecordID).Err(err).Msg("dispatch failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "inbound data could not be processed"})
	default:
		log.Error().Err(err).Msg("inbound call failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeReply(w http.ResponseWriter, reply inbound.Reply) {
	for k, vs := range reply.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := reply.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(reply.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
