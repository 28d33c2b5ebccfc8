package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Subjects(t *testing.T) {
	fc := &fakeConn{}
	p := newNATSPublisher(fc, "paris")

	require.NoError(t, p.PublishChatDecision(context.Background(), ChatDecision{InitiatorID: "v", TargetID: "m", Allowed: true}))
	require.NoError(t, p.PublishChatDecision(context.Background(), ChatDecision{InitiatorID: "v", TargetID: "m", Reason: "no_matching_categories"}))

	assert.Equal(t, []string{"paris.chat.allowed", "paris.chat.denied"}, fc.subjects)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(fc.payloads[1], &ev))
	assert.Equal(t, false, ev["can_chat"])
	assert.Equal(t, "no_matching_categories", ev["reason"])
	assert.NotEmpty(t, ev["at"])
}

func TestNATSPublisher_DefaultPrefix(t *testing.T) {
	p := newNATSPublisher(&fakeConn{}, "")
	assert.Equal(t, "helpmap.chat.allowed", p.Subject(ChatDecision{Allowed: true}))
}

func TestNATSPublisher_KeepsTimestamp(t *testing.T) {
	fc := &fakeConn{}
	p := newNATSPublisher(fc, "x")
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, p.PublishChatDecision(context.Background(), ChatDecision{Allowed: true, At: at}))

	var ev ChatDecision
	require.NoError(t, json.Unmarshal(fc.payloads[0], &ev))
	assert.True(t, at.Equal(ev.At))
}

func TestNATSPublisher_PublishError(t *testing.T) {
	p := newNATSPublisher(&fakeConn{err: errors.New("nats: connection closed")}, "x")

	err := p.PublishChatDecision(context.Background(), ChatDecision{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events: publish x.chat.denied")
}

func TestNATSPublisher_CloseDrains(t *testing.T) {
	fc := &fakeConn{}
	require.NoError(t, newNATSPublisher(fc, "x").Close())
	assert.True(t, fc.drained)
}

func TestConnect_EmptyURLIsNop(t *testing.T) {
	p, err := Connect(Config{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.PublishChatDecision(context.Background(), ChatDecision{}))
	assert.NoError(t, p.Close())
}
