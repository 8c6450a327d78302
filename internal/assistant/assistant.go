// Package assistant wires the domain services on top of one store.
package assistant

import (
	"fmt"

	"github.com/TAESTUDIOS/psa3/internal/briefing"
	"github.com/TAESTUDIOS/psa3/internal/chat"
	"github.com/TAESTUDIOS/psa3/internal/config"
	"github.com/TAESTUDIOS/psa3/internal/dispatch"
	"github.com/TAESTUDIOS/psa3/internal/ledger"
	"github.com/TAESTUDIOS/psa3/internal/ritual"
	"github.com/TAESTUDIOS/psa3/internal/scheduler"
	"github.com/TAESTUDIOS/psa3/internal/store"
)

type Assistant struct {
	Store      store.Store
	Ledger     *ledger.Ledger
	Composer   *briefing.Composer
	Dispatcher *dispatch.Dispatcher
	Fallback   *dispatch.FallbackProxy
	Chat       *chat.Router
	Scheduler  *scheduler.Scheduler
}

// New builds every service against st. The scheduler is created but not
// started; running it on a cron is left to the caller.
func New(st store.Store, cfg *config.Config) (*Assistant, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	timeout, err := config.DurationOrDefault(cfg.Dispatch.Timeout, config.DefaultDispatchTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse dispatch timeout: %w", err)
	}

	a := &Assistant{Store: st}
	a.Ledger = ledger.New(st.Messages(), cfg.Store.HistoryLimit)
	a.Composer = briefing.NewComposer(st.Appointments(), st.Urgent())
	a.Dispatcher = dispatch.New(ritual.NewResolver(st.Rituals()), a.Composer, a.Ledger, timeout)
	a.Fallback = dispatch.NewFallbackProxy(cfg.Dispatch.FallbackWebhook, timeout)

	a.Scheduler, err = scheduler.NewScheduler(st.Rituals(), a.Dispatcher, cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	a.Chat = chat.NewRouter(a.Ledger, st.Rituals(), st.Settings(), a.Dispatcher, a.Fallback, a.Scheduler.Timezone())
	return a, nil
}
