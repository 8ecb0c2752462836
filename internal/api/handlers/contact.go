package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"

	"github.com/crestline/perf/internal/contact"
	"github.com/crestline/perf/pkg/logger"
)

const maxContactBody = 64 << 10

// ContactHandler accepts contact-form posts
type ContactHandler struct {
	svc     *contact.Service
	trusted []netip.Prefix // proxies whose forwarding headers are believed
	logger  *logger.Logger
}

// NewContactHandler creates a new contact handler. Forwarding headers are
// only honoured when the socket peer falls inside trustedProxies.
func NewContactHandler(svc *contact.Service, trustedProxies []netip.Prefix, log *logger.Logger) *ContactHandler {
	return &ContactHandler{
		svc:     svc,
		trusted: trustedProxies,
		logger:  log,
	}
}

type contactResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Errors  []contact.FieldError `json:"errors,omitempty"`
}

// Submit validates and records one submission
// POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission

	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondJSON(w, http.StatusBadRequest, contactResponse{
			Errors: []contact.FieldError{{Field: "body", Message: "Request body must be a JSON object"}},
		})
		return
	}

	_, err := h.svc.Submit(r.Context(), h.clientKey(r), sub)

	var verr *contact.ValidationError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, contactResponse{
			Success: true,
			Message: "Thank you for your message. We will be in touch shortly.",
		})
	case errors.Is(err, contact.ErrRateLimited):
		respondJSON(w, http.StatusTooManyRequests, contactResponse{
			Message: "Too many submissions. Please try again later.",
		})
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, contactResponse{Errors: verr.Fields})
	default:
		h.logger.WithError(err).Error("Contact submission failed")
		respondJSON(w, http.StatusInternalServerError, contactResponse{Message: "Internal server error"})
	}
}

// clientKey identifies the caller for rate limiting. The socket peer is
// used unless it is a trusted proxy; then X-Forwarded-For is walked from
// the right and the first untrusted hop wins, with X-Real-IP as a fallback
// when no forwarding chain is present.
func (h *ContactHandler) clientKey(r *http.Request) string {
	peer, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	client := peer.Addr().Unmap()
	if !h.isTrusted(client) {
		return client.String()
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop.Unmap()
			if !h.isTrusted(client) {
				break
			}
		}
		return client.String()
	}

	if xr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xr.Unmap().String()
	}
	return client.String()
}

func (h *ContactHandler) isTrusted(addr netip.Addr) bool {
	for _, p := range h.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
