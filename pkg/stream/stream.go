// Package stream implements the Stream Orchestrator (spec §4.11): one
// ordered event bus per request multiplexing status, thinking-phase,
// token, enhancement, nutrition-report, execution-trace, heartbeat, and
// terminal events, with an exactly-once `done` contract and cooperative
// cancellation on client disconnect.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kitchencore/reasoner/pkg/metrics"
)

// Kind is one SSE event type.
type Kind string

const (
	KindStatus          Kind = "status"
	KindThinkingPhase   Kind = "thinking_phase"
	KindToken           Kind = "token"
	KindEnhancement     Kind = "enhancement"
	KindNutritionReport Kind = "nutrition_report"
	KindExecutionTrace  Kind = "execution_trace"
	KindPing            Kind = "ping"
	KindErrorEvent      Kind = "error_event"
	KindDone            Kind = "done"
)

// DoneStatus is the closed set of terminal status codes.
type DoneStatus string

const (
	DoneOK               DoneStatus = "OK"
	DoneFailed           DoneStatus = "FAILED"
	DoneResourceExceeded DoneStatus = "RESOURCE_EXCEEDED"
)

// Event is one framed item on the stream. SeqID and Timestamp are
// stamped by the Orchestrator, not the caller.
type Event struct {
	SeqID     int64
	Timestamp time.Time
	Kind      Kind
	Payload   any
}

// DonePayload is the payload carried by the terminal `done` event.
type DonePayload struct {
	Status DoneStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

// Orchestrator multiplexes one request's events onto a single ordered,
// bounded channel with heartbeats and an exactly-once done contract.
type Orchestrator struct {
	events chan Event
	seq    atomic.Int64

	doneOnce sync.Once
	doneSent atomic.Bool

	heartbeatInterval time.Duration
	sessionID         string
}

// New creates an Orchestrator with the given bounded queue depth and
// heartbeat cadence.
func New(queueDepth int, heartbeatInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		events:            make(chan Event, queueDepth),
		heartbeatInterval: heartbeatInterval,
		sessionID:         "unknown",
	}
}

// SetSessionID labels this orchestrator's queue-depth metric. Optional;
// defaults to "unknown" so the gauge stays usable without it.
func (o *Orchestrator) SetSessionID(sessionID string) {
	if sessionID != "" {
		o.sessionID = sessionID
	}
}

// Events exposes the channel the HTTP layer drains and frames onto SSE.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) nextSeq() int64 {
	return o.seq.Add(1)
}

// emit enqueues an event unless done has already been sent -- tokens and
// status must never arrive after done (spec §4.11 invariant).
func (o *Orchestrator) emit(ctx context.Context, kind Kind, payload any) {
	if o.doneSent.Load() {
		return
	}
	ev := Event{SeqID: o.nextSeq(), Timestamp: time.Now(), Kind: kind, Payload: payload}
	select {
	case o.events <- ev:
		metrics.SetStreamQueueDepth(o.sessionID, len(o.events))
	case <-ctx.Done():
	}
}

// Status enqueues a status event.
func (o *Orchestrator) Status(ctx context.Context, status string) {
	o.emit(ctx, KindStatus, map[string]string{"status": status})
}

// ThinkingPhase enqueues a thinking-phase event.
func (o *Orchestrator) ThinkingPhase(ctx context.Context, phaseType string) {
	o.emit(ctx, KindThinkingPhase, map[string]string{"type": phaseType})
}

// Token enqueues one generated token, preserving generation order since
// all callers share this single orchestrator's sequence counter.
func (o *Orchestrator) Token(ctx context.Context, text string) {
	o.emit(ctx, KindToken, text)
}

// Enhancement enqueues a DAG-agent enhancement result.
func (o *Orchestrator) Enhancement(ctx context.Context, payload any) {
	o.emit(ctx, KindEnhancement, payload)
}

// NutritionReport enqueues the nutrition-claim verification summary.
func (o *Orchestrator) NutritionReport(ctx context.Context, payload any) {
	o.emit(ctx, KindNutritionReport, payload)
}

// ExecutionTrace enqueues the serialized execution trace.
func (o *Orchestrator) ExecutionTrace(ctx context.Context, payload any) {
	o.emit(ctx, KindExecutionTrace, payload)
}

// ErrorEvent enqueues a non-terminal error notice.
func (o *Orchestrator) ErrorEvent(ctx context.Context, message string) {
	o.emit(ctx, KindErrorEvent, map[string]string{"message": message})
}

// Done enqueues the terminal event exactly once; later calls are no-ops.
// The channel itself is never closed here -- concurrent heartbeat or
// producer goroutines may still be mid-send, and closing underneath them
// would panic. The drain loop (HTTP layer) must stop reading after it
// sees a KindDone event; Drain below does exactly that.
func (o *Orchestrator) Done(ctx context.Context, status DoneStatus, reason string) {
	o.doneOnce.Do(func() {
		o.doneSent.Store(true)
		ev := Event{SeqID: o.nextSeq(), Timestamp: time.Now(), Kind: KindDone, Payload: DonePayload{Status: status, Reason: reason}}
		select {
		case o.events <- ev:
			metrics.SetStreamQueueDepth(o.sessionID, len(o.events))
		case <-ctx.Done():
		}
		metrics.DeleteStreamQueueDepth(o.sessionID)
	})
}

// DoneSent reports whether the terminal event has already been emitted.
func (o *Orchestrator) DoneSent() bool {
	return o.doneSent.Load()
}

// Drain reads events until it observes the terminal KindDone event (which
// it still yields to handle) or ctx is cancelled, then returns. Callers
// must use this instead of ranging over Events() directly, since the
// channel is never closed.
func (o *Orchestrator) Drain(ctx context.Context, handle func(Event)) {
	for {
		select {
		case ev := <-o.events:
			handle(ev)
			if ev.Kind == KindDone {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunHeartbeat ticks a ping event at the configured interval until ctx is
// cancelled. Intended to run as its own goroutine alongside the producer.
func (o *Orchestrator) RunHeartbeat(ctx context.Context) {
	if o.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(o.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.emit(ctx, KindPing, nil)
		}
	}
}

// Run executes producer as the orchestration coroutine alongside a
// heartbeat coroutine, and implements the lifecycle from spec §4.11:
// initializing status, producer completion -> done, client-disconnect ->
// aborted done, uncaught error -> error_event + done{FAILED}, and a
// safety-net done if nothing else fired one.
func (o *Orchestrator) Run(ctx context.Context, producer func(ctx context.Context) error) {
	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()

	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		o.RunHeartbeat(heartbeatCtx)
	}()

	o.Status(ctx, "initializing")

	producerDone := make(chan error, 1)
	go func() {
		producerDone <- runProducerSafely(ctx, producer)
	}()

	select {
	case err := <-producerDone:
		if err != nil {
			o.ErrorEvent(ctx, err.Error())
			o.Done(ctx, DoneFailed, err.Error())
		} else {
			o.Done(ctx, DoneOK, "")
		}
	case <-ctx.Done():
		o.Done(ctx, DoneFailed, "client_disconnect")
	}

	cancelHeartbeat()
	hbWg.Wait()

	// Safety net: if nothing above sent done (shouldn't happen given the
	// select above, but guards future refactors), send one now.
	if !o.doneSent.Load() {
		o.Done(context.Background(), DoneFailed, "safety_net")
	}
}

func runProducerSafely(ctx context.Context, producer func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	return producer(ctx)
}

func panicToError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return errString("panic in orchestration producer")
}

type errString string

func (e errString) Error() string { return string(e) }
