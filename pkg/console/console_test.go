package console

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bmrelay/relaynode/pkg/addrpool"
	"github.com/bmrelay/relaynode/pkg/node"
	"github.com/bmrelay/relaynode/pkg/objstore"
)

func newTestConsole(t *testing.T) *Console {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	n := node.New(node.Config{}, objstore.New(), addrpool.New(), logger.Sugar(), [8]byte{1})
	c, err := New(n, nil)
	require.NoError(t, err)
	return c
}

func TestDispatchUnknownCommandReturnsError(t *testing.T) {
	c := newTestConsole(t)
	err := c.dispatch("frobnicate", nil)
	assert.Error(t, err)
}

func TestDispatchExitReturnsEOF(t *testing.T) {
	c := newTestConsole(t)
	err := c.dispatch("exit", nil)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCmdPublishWithoutPublisherErrors(t *testing.T) {
	c := newTestConsole(t)
	err := c.cmdPublish([]string{"1", "60", "hello"})
	assert.Error(t, err)
}

func TestCmdPublishRequiresArgs(t *testing.T) {
	c := newTestConsole(t)
	err := c.cmdPublish(nil)
	assert.Error(t, err)
}
