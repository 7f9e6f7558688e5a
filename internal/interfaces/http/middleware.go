package httpinterface

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/pkg/jwtauth"
)

type callerKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack is required by websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{w, http.StatusOK}
		next.ServeHTTP(rec, req)

		log.WithFields(log.Fields{
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debugf("%s %s", req.Method, req.URL.Path)
	})
}

// authenticator identifies the caller of a request by the subject of its
// bearer token.
type authenticator struct {
	secret []byte
}

func (a authenticator) required(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		subject, err := jwtauth.SubjectFromRequest(a.secret, req)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(req.Context(), callerKey{}, domain.Account(subject))
		next(w, req.WithContext(ctx))
	}
}

func callerFromContext(ctx context.Context) domain.Account {
	caller, _ := ctx.Value(callerKey{}).(domain.Account)
	return caller
}
