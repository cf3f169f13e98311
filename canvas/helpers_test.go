package canvas

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id   string
	mu   sync.Mutex
	msgs [][]byte
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(msg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *fakePeer) envelopes(t *testing.T) []Envelope {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	envs := make([]Envelope, 0, len(p.msgs))
	for _, m := range p.msgs {
		env, err := Decode(m)
		require.NoError(t, err)
		envs = append(envs, env)
	}
	return envs
}

func (p *fakePeer) kinds(t *testing.T) []Kind {
	t.Helper()
	var kinds []Kind
	for _, env := range p.envelopes(t) {
		kinds = append(kinds, env.Type)
	}
	return kinds
}

func (p *fakePeer) count(t *testing.T, kind Kind) int {
	t.Helper()
	n := 0
	for _, k := range p.kinds(t) {
		if k == kind {
			n++
		}
	}
	return n
}

// last decodes the payload of the most recent message of kind into v.
func (p *fakePeer) last(t *testing.T, kind Kind, v any) {
	t.Helper()
	envs := p.envelopes(t)
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == kind {
			require.NoError(t, json.Unmarshal(envs[i].Data, v))
			return
		}
	}
	t.Fatalf("no %s message received", kind)
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = nil
}

func frame(t *testing.T, kind Kind, payload any) []byte {
	t.Helper()
	msg, err := Encode(kind, payload)
	require.NoError(t, err)
	return msg
}

func fixedClock() func() time.Time {
	at := time.UnixMilli(1700000000000)
	return func() time.Time { return at }
}
