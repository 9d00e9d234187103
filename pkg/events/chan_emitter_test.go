package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanEmitter_DeliversInOrder(t *testing.T) {
	e := NewChanEmitter(4)
	sub := e.Subscribe()

	e.Emit(context.Background(), Event{Type: EventThinking, Data: ThinkingData{Query: "hi"}})
	e.Emit(context.Background(), Event{Type: EventDone, Data: MessageData{Content: "ok"}})
	e.Close()

	var got []EventType
	for ev := range sub.Events() {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []EventType{EventThinking, EventDone}, got)
}

func TestChanEmitter_EmitAfterCloseIsNoop(t *testing.T) {
	e := NewChanEmitter(1)
	e.Close()
	e.Close()

	require.NotPanics(t, func() {
		e.Emit(context.Background(), Event{Type: EventDone})
	})
}

func TestChanEmitter_RespectsContext(t *testing.T) {
	e := NewChanEmitter(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Emit(ctx, Event{Type: EventThinking})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked past context deadline")
	}
}

func TestFanout_DeliversToAll(t *testing.T) {
	a := NewChanEmitter(1)
	b := NewChanEmitter(1)

	Fanout(a, nil, b).Emit(context.Background(), Event{Type: EventDone})

	assert.Equal(t, EventDone, (<-a.Subscribe().Events()).Type)
	assert.Equal(t, EventDone, (<-b.Subscribe().Events()).Type)
}
