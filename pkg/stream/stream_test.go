package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drainAll(ctx context.Context, o *Orchestrator) []Event {
	var events []Event
	o.Drain(ctx, func(ev Event) { events = append(events, ev) })
	return events
}

func TestRun_SuccessfulProducerEndsWithDoneOK(t *testing.T) {
	o := New(32, 0)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		o.Run(ctx, func(ctx context.Context) error { return nil })
		close(done)
	}()

	events := drainAll(ctx, o)
	<-done

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, KindDone, last.Kind)
	payload := last.Payload.(DonePayload)
	require.Equal(t, DoneOK, payload.Status)
}

func TestRun_ProducerErrorEndsWithDoneFailed(t *testing.T) {
	o := New(32, 0)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		o.Run(ctx, func(ctx context.Context) error { return errors.New("boom") })
		close(done)
	}()

	events := drainAll(ctx, o)
	<-done

	var sawError, sawDoneFailed bool
	for _, ev := range events {
		if ev.Kind == KindErrorEvent {
			sawError = true
		}
		if ev.Kind == KindDone && ev.Payload.(DonePayload).Status == DoneFailed {
			sawDoneFailed = true
		}
	}
	require.True(t, sawError)
	require.True(t, sawDoneFailed)
}

func TestRun_PanicInProducerBecomesDoneFailed(t *testing.T) {
	o := New(32, 0)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		o.Run(ctx, func(ctx context.Context) error { panic("kaboom") })
		close(done)
	}()

	events := drainAll(ctx, o)
	<-done

	last := events[len(events)-1]
	require.Equal(t, DoneFailed, last.Payload.(DonePayload).Status)
}

func TestRun_FirstEventIsInitializingStatus(t *testing.T) {
	o := New(32, 0)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		o.Run(ctx, func(ctx context.Context) error { return nil })
		close(done)
	}()

	events := drainAll(ctx, o)
	<-done

	require.Equal(t, KindStatus, events[0].Kind)
	require.Equal(t, "initializing", events[0].Payload.(map[string]string)["status"])
}

func TestDone_OnlyEmitsOnce(t *testing.T) {
	o := New(8, 0)
	ctx := context.Background()
	o.Done(ctx, DoneOK, "")
	o.Done(ctx, DoneFailed, "should be ignored")

	ev := <-o.events
	require.Equal(t, DoneOK, ev.Payload.(DonePayload).Status)
	select {
	case <-o.events:
		t.Fatal("a second done event was emitted")
	default:
	}
}

func TestEmit_NothingAfterDone(t *testing.T) {
	o := New(8, 0)
	ctx := context.Background()
	o.Token(ctx, "before")
	o.Done(ctx, DoneOK, "")
	o.Token(ctx, "after")

	<-o.events // token "before"
	ev := <-o.events
	require.Equal(t, KindDone, ev.Kind)
	select {
	case ev := <-o.events:
		t.Fatalf("unexpected event after done: %+v", ev)
	default:
	}
}

func TestSeqIDsAreMonotonic(t *testing.T) {
	o := New(8, 0)
	ctx := context.Background()
	o.Status(ctx, "initializing")
	o.Token(ctx, "a")
	o.Done(ctx, DoneOK, "")

	var last int64
	for i := 0; i < 3; i++ {
		ev := <-o.events
		require.Greater(t, ev.SeqID, last)
		last = ev.SeqID
	}
}

func TestRunHeartbeat_EmitsPingAtInterval(t *testing.T) {
	o := New(8, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	o.RunHeartbeat(ctx)

	var pings int
	for {
		select {
		case ev := <-o.events:
			if ev.Kind == KindPing {
				pings++
			}
		default:
			goto checked
		}
	}
checked:
	require.GreaterOrEqual(t, pings, 2)
}
