package serialline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeReadsReplyLine(t *testing.T) {
	dev := &FakeDevice{Respond: func(line string) string { return "ack:" + line }}
	p := New("fake", dev)

	reply, ok, err := p.Exchange("plastic", 0, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ack:plastic", reply)
	assert.Equal(t, []string{"plastic"}, dev.Lines())
}

func TestExchangeWithoutReplyTimesOut(t *testing.T) {
	p := New("fake", &FakeDevice{})

	start := time.Now()
	reply, ok, err := p.Exchange("block_entrance", 0, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, reply)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExchangeWriteError(t *testing.T) {
	p := New("fake", &FakeDevice{WriteErr: errors.New("broken pipe")})

	_, _, err := p.Exchange("metal", 0, 10*time.Millisecond)
	assert.ErrorContains(t, err, "broken pipe")
}

func TestClosedPort(t *testing.T) {
	p := New("fake", &FakeDevice{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.False(t, p.IsOpen())
	_, _, err := p.Exchange("test", 0, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenRequiresReadTimeout(t *testing.T) {
	_, err := Open(Config{Device: "/dev/null", Baud: 9600})
	assert.Error(t, err)
}
