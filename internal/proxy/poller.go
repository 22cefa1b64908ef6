package proxy

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jangabrielsson/plua2/internal/codec"
)

const (
	defaultPollInterval = time.Second

	// pollMaxRetries bounds consecutive transport failures before the
	// poller gives up on the remote.
	pollMaxRetries = 5
)

// EventSink receives the remote events the poller mirrors locally.
type EventSink interface {
	Add(event *codec.Map) int64
}

// Poller follows the remote controller's refreshStates feed and adds its
// events to the local store, keeping local pollers and the WebSocket hub
// loosely synchronized with the real controller. It runs only in online
// mode; the loop stops on rejected credentials or after too many
// consecutive transport failures.
type Poller struct {
	client   *Client
	sink     EventSink
	log      Logger
	interval time.Duration

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPoller creates a poller feeding sink from client's refreshStates
// endpoint.
func NewPoller(client *Client, sink EventSink) *Poller {
	return &Poller{
		client:   client,
		sink:     sink,
		log:      noopLogger{},
		interval: defaultPollInterval,
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for poll failures.
func (p *Poller) SetLogger(l Logger) {
	p.log = l
}

// Start launches the polling loop. It runs until ctx is cancelled, Stop
// is called, or the loop aborts on its own terms.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		go p.run(ctx)
	})
}

// Stop terminates the loop and waits for it to exit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		} else {
			close(p.done)
		}
	})
}

// Done returns a channel closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	var last int64
	retries := 0
	for {
		next, status := p.poll(ctx, last)
		switch {
		case status == http.StatusOK:
			retries = 0
			last = next
		case status == http.StatusUnauthorized:
			p.log.Error("remote rejected credentials, stopping event poll")
			return
		case status == http.StatusRequestTimeout:
			retries++
			if retries > pollMaxRetries {
				p.log.Error("remote unreachable, stopping event poll", "retries", retries)
				return
			}
		default:
			p.log.Debug("refreshStates poll failed", "status", status)
		}

		select {
		case <-time.After(p.interval):
		case <-ctx.Done():
			return
		}
	}
}

// poll fetches one refreshStates page and feeds its events to the sink.
// It returns the advanced cursor and the transport status.
func (p *Poller) poll(ctx context.Context, last int64) (int64, int) {
	path := "/refreshStates?last=" + strconv.FormatInt(last, 10) + "&lang=en"
	value, status := p.client.Call(ctx, http.MethodGet, path, nil)
	if status != http.StatusOK {
		return last, status
	}
	page, ok := codec.AsMap(value)
	if !ok {
		return last, http.StatusNotImplemented
	}

	if v, ok := page.Get("last"); ok {
		if n, ok := codec.AsInt(v); ok {
			last = int64(n)
		}
	}
	if v, ok := page.Get("events"); ok {
		if arr, ok := codec.AsArray(v); ok {
			for i := 0; i < arr.Len(); i++ {
				if ev, ok := codec.AsMap(arr.At(i)); ok {
					p.sink.Add(ev)
				}
			}
		}
	}
	return last, status
}
