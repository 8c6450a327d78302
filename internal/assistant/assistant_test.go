package assistant

import (
	"context"
	"testing"

	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/store"
	"github.com/TAESTUDIOS/psa3/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WiresServices(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.HistoryLimit = 3
	cfg.Scheduler.Timezone = "Europe/Berlin"

	a, err := New(memory.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Ledger.Keep())
	assert.Equal(t, "Europe/Berlin", a.Scheduler.Timezone())
	assert.Empty(t, a.Fallback.DefaultURL())

	reply, err := a.Chat.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Echo: hi", reply.Reply.Text)
}

func TestNew_HistoryLimitCappedAtLedgerMax(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.HistoryLimit = 1000

	a, err := New(memory.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, store.History, a.Ledger.Keep())
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(nil, &config.Config{})
	assert.Error(t, err)

	cfg := &config.Config{}
	cfg.Dispatch.Timeout = "soon"
	_, err = New(memory.New(), cfg)
	assert.Error(t, err)

	cfg = &config.Config{}
	cfg.Scheduler.Spec = "every minute"
	_, err = New(memory.New(), cfg)
	assert.Error(t, err)
}
