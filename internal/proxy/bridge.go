package proxy

import (
	"context"
	"net/http"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// Bridge is the synchronous cross-boundary transport used for restricted
// calls. Send blocks the calling task until the peer answers or the
// context expires; it never touches the network directly.
type Bridge interface {
	Send(ctx context.Context, payload string) (string, error)
}

// Restricted routes restricted API calls through a bridge, never through
// direct transport. The wire contract: request {method, path, data}
// codec-encoded, response a 3-element [ok, status, data] envelope.
type Restricted struct {
	bridge  Bridge
	offline bool
	log     Logger
}

// NewRestricted creates a restricted-call router. bridge may be nil only
// in offline mode, where the bridge is never invoked.
func NewRestricted(bridge Bridge, offline bool) *Restricted {
	return &Restricted{
		bridge:  bridge,
		offline: offline,
		log:     noopLogger{},
	}
}

// SetLogger sets the logger for bridge diagnostics.
func (r *Restricted) SetLogger(l Logger) {
	r.log = l
}

// Call sends one restricted call over the bridge.
//
// Offline mode fails immediately with 408 and no bridge invocation. A
// missing, undecodable or wrongly shaped response, or an envelope with
// ok=false, yields 501. Otherwise the envelope's status and data pass
// through.
func (r *Restricted) Call(ctx context.Context, method, path string, data codec.Value) (codec.Value, int) {
	if r.offline || r.bridge == nil {
		return nil, http.StatusRequestTimeout
	}

	request := codec.NewMap()
	request.Set("method", codec.String(method))
	request.Set("path", codec.String(path))
	if data != nil {
		request.Set("data", data)
	}
	payload, err := codec.Encode(request)
	if err != nil {
		r.log.Warn("restricted request encode failed", "path", path, "error", err)
		return nil, http.StatusNotImplemented
	}

	raw, err := r.bridge.Send(ctx, payload)
	if err != nil {
		r.log.Warn("bridge send failed", "path", path, "error", err)
		return nil, http.StatusNotImplemented
	}

	value, err := codec.Decode(raw)
	if err != nil {
		r.log.Warn("bridge response undecodable", "path", path, "error", err)
		return nil, http.StatusNotImplemented
	}
	envelope, ok := codec.AsArray(value)
	if !ok || envelope.Len() != 3 {
		r.log.Warn("bridge response not a 3-element envelope", "path", path)
		return nil, http.StatusNotImplemented
	}

	okFlag, isBool := codec.AsBool(envelope.At(0))
	status, isNum := codec.AsInt(envelope.At(1))
	if !isBool || !isNum {
		r.log.Warn("bridge envelope wrongly typed", "path", path)
		return nil, http.StatusNotImplemented
	}
	if !okFlag {
		return nil, http.StatusNotImplemented
	}
	return envelope.At(2), status
}
