package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type message struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu     sync.Mutex
	sent   []message
	token  func() mqtt.Token
	closed bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	c.sent = append(c.sent, message{topic: topic, qos: qos, payload: payload.([]byte)})
	c.mu.Unlock()
	if c.token != nil {
		return c.token()
	}
	return doneToken(nil)
}

func (c *fakeClient) Disconnect(uint) { c.closed = true }

func TestMQTT_PublishesJSON(t *testing.T) {
	c := &fakeClient{}
	p := newMQTT(c, MQTTConfig{Topic: "door/1", QoS: 1}, nil)

	e := New(KindLogin, "accepted")
	e.Name = "Ana"
	e.Score = 0.9
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, c.sent, 1)
	assert.Equal(t, "door/1/login", c.sent[0].topic)
	assert.Equal(t, byte(1), c.sent[0].qos)

	var got Event
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, KindLogin, got.Kind)

	p.Close()
	assert.True(t, c.closed)
}

func TestMQTT_DefaultTopic(t *testing.T) {
	p := newMQTT(&fakeClient{}, MQTTConfig{}, nil)
	assert.Equal(t, "biopass/access/registered", p.TopicFor(KindRegistered))
}

func TestMQTT_BrokerError(t *testing.T) {
	c := &fakeClient{token: func() mqtt.Token { return doneToken(errors.New("not connected")) }}
	p := newMQTT(c, MQTTConfig{}, nil)
	assert.ErrorContains(t, p.Publish(context.Background(), New(KindLogin, "unknown")), "not connected")
}

func TestMQTT_Timeout(t *testing.T) {
	c := &fakeClient{token: func() mqtt.Token { return &fakeToken{done: make(chan struct{})} }}
	p := newMQTT(c, MQTTConfig{Timeout: 10 * time.Millisecond}, nil)
	assert.ErrorContains(t, p.Publish(context.Background(), New(KindLogin, "unknown")), "timed out")
}

func TestMQTT_ContextCancelled(t *testing.T) {
	c := &fakeClient{token: func() mqtt.Token { return &fakeToken{done: make(chan struct{})} }}
	p := newMQTT(c, MQTTConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, New(KindLogin, "unknown")), context.Canceled)
}

func TestNew_StampsEvent(t *testing.T) {
	e := New(KindRegistered, "ok")
	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now(), e.At, time.Second)
	assert.NoError(t, Nop{}.Publish(context.Background(), e))
}
