package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yshioka/equipmatch/internal/domain/models"
)

const testOrigin = "equipmatch-test"

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New(testOrigin, 8, nil)
	t.Cleanup(h.Shutdown)
	return h
}

func receive(t *testing.T, w *Window) models.Message {
	t.Helper()
	select {
	case msg, ok := <-w.Inbox():
		require.True(t, ok, "inbox closed unexpectedly")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return models.Message{}
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := newTestHub(t)
	main, err := h.Open(WindowMain)
	require.NoError(t, err)
	ledger, err := h.OpenChild(WindowLedger, main)
	require.NoError(t, err)
	me, err := h.OpenChild(WindowMELedger, main)
	require.NoError(t, err)

	main.Broadcast(models.Message{Type: models.MsgFilterUpdate})

	got := receive(t, ledger)
	assert.Equal(t, models.MsgFilterUpdate, got.Type)
	assert.Equal(t, main.ID(), got.Source)
	assert.Equal(t, testOrigin, got.Origin)
	got = receive(t, me)
	assert.Equal(t, models.MsgFilterUpdate, got.Type)

	select {
	case msg := <-main.Inbox():
		t.Fatalf("sender received its own broadcast: %+v", msg)
	default:
	}
}

func TestPostToOpener(t *testing.T) {
	h := newTestHub(t)
	main, err := h.Open(WindowMain)
	require.NoError(t, err)
	ledger, err := h.OpenChild(WindowLedger, main)
	require.NoError(t, err)

	ledger.PostToOpener(models.Message{Type: models.MsgLedgerSelection})
	got := receive(t, main)
	assert.Equal(t, models.MsgLedgerSelection, got.Type)
	assert.Equal(t, ledger.ID(), got.Source)

	// A top-level window has no opener; posting upward is a no-op.
	main.PostToOpener(models.Message{Type: models.MsgLedgerSelection})
	select {
	case msg := <-main.Inbox():
		t.Fatalf("unexpected delivery: %+v", msg)
	default:
	}
}

func TestPostToClosedWindowIsNoOp(t *testing.T) {
	h := newTestHub(t)
	main, err := h.Open(WindowMain)
	require.NoError(t, err)
	ledger, err := h.OpenChild(WindowLedger, main)
	require.NoError(t, err)

	ledger.Close()
	assert.True(t, ledger.Closed())

	// The opener still holds the stale handle; posting must not panic and
	// must not deliver anywhere.
	main.Post(ledger, models.Message{Type: models.MsgMatchComplete})
	main.Post(nil, models.Message{Type: models.MsgMatchComplete})

	_, ok := <-ledger.Inbox()
	assert.False(t, ok, "closed inbox reads as closed")

	ledger.Close() // double close is a no-op
}

func TestForeignOriginIsDropped(t *testing.T) {
	h := newTestHub(t)
	main, err := h.Open(WindowMain)
	require.NoError(t, err)
	ledger, err := h.OpenChild(WindowLedger, main)
	require.NoError(t, err)

	h.deliver(ledger, models.Message{Type: models.MsgFilterUpdate, Origin: "somewhere-else"})

	select {
	case msg := <-ledger.Inbox():
		t.Fatalf("foreign-origin message delivered: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSweepStale(t *testing.T) {
	h := newTestHub(t)
	main, err := h.Open(WindowMain)
	require.NoError(t, err)
	ledger, err := h.OpenChild(WindowLedger, main)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	main.Heartbeat()

	swept := h.SweepStale(10 * time.Millisecond)
	require.Len(t, swept, 1)
	assert.Equal(t, ledger.ID(), swept[0])
	assert.True(t, ledger.Closed())
	assert.False(t, main.Closed())
}

func TestShutdownRefusesOpens(t *testing.T) {
	h := New(testOrigin, 8, nil)
	main, err := h.Open(WindowMain)
	require.NoError(t, err)

	h.Shutdown()
	assert.True(t, main.Closed())

	_, err = h.Open(WindowMain)
	assert.ErrorIs(t, err, ErrHubClosed)
}
