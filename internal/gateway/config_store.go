package gateway

import (
	"encoding/json"
	"time"

	"github.com/johanriascos7777/ReversionMediaTrading/config"
	"github.com/johanriascos7777/ReversionMediaTrading/internal/model"
)

// ConfigUpdate is broadcast to subscribers whenever the signal parameters change.
type ConfigUpdate struct {
	Type   string        `json:"type"`
	Config config.Signal `json:"config"`
	TS     string        `json:"ts"`
}

// ConfigStore exposes the runtime signal parameters over REST and
// broadcasts every effective change.
type ConfigStore struct {
	hub   *Hub
	store *config.Store
}

// NewConfigStore wires store changes to hub broadcasts.
func NewConfigStore(hub *Hub, store *config.Store) *ConfigStore {
	cs := &ConfigStore{hub: hub, store: store}
	store.Subscribe(func(_, next config.Signal) {
		cs.broadcast(next)
	})
	hub.ConfigStore = cs
	return cs
}

// Get returns the current parameters.
func (cs *ConfigStore) Get() config.Signal {
	return cs.store.Get()
}

// Set validates and applies cfg. Subscribers receive a config_update on success.
func (cs *ConfigStore) Set(cfg config.Signal) error {
	if err := cs.store.Update(cfg); err != nil {
		return err
	}
	cs.hub.log.Info("signal config updated",
		"percentile_green_min", cfg.PercentileGreenMin,
		"elasticity_min", cfg.ElasticityMin,
		"elasticity_max", cfg.ElasticityMax,
		"ema_period", cfg.EMAPeriod,
		"percentile_window", cfg.PercentileWindow)
	return nil
}

func (cs *ConfigStore) broadcast(cfg config.Signal) {
	envelope, _ := json.Marshal(ConfigUpdate{
		Type:   model.MsgConfigUpdate,
		Config: cfg,
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	cs.hub.Broadcaster.Broadcast(model.MsgConfigUpdate, envelope)
}
