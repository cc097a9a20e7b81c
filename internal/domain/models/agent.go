package models

import (
	"encoding/json"
	"time"
)

const (
	DefaultCheckInterval = 60 * time.Second
	DefaultMinConfidence = 60.0
	DefaultMinVolumeUSD  = 2_000_000.0
)

// DefaultSymbols is the watch-list used when none is configured.
var DefaultSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "ADAUSDT", "MATICUSDT"}

// AgentConfig drives the polling scheduler.
type AgentConfig struct {
	Enabled       bool          `json:"enabled"`
	Symbols       []string      `json:"symbols"`
	CheckInterval time.Duration `json:"-"`
	MinConfidence float64       `json:"minConfidence"`
	MinVolumeUSD  float64       `json:"minVolumeUSD"`
}

// DefaultAgentConfig returns the stock agent configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Symbols:       append([]string(nil), DefaultSymbols...),
		CheckInterval: DefaultCheckInterval,
		MinConfidence: DefaultMinConfidence,
		MinVolumeUSD:  DefaultMinVolumeUSD,
	}
}

// AgentConfigPatch is a partial update; nil fields keep their current value.
type AgentConfigPatch struct {
	Enabled       *bool
	Symbols       []string
	CheckInterval *time.Duration
	MinConfidence *float64
	MinVolumeUSD  *float64
}

// Apply returns c with the patch merged over it.
func (p AgentConfigPatch) Apply(c AgentConfig) AgentConfig {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.Symbols != nil {
		c.Symbols = append([]string(nil), p.Symbols...)
	}
	if p.CheckInterval != nil && *p.CheckInterval > 0 {
		c.CheckInterval = *p.CheckInterval
	}
	if p.MinConfidence != nil {
		c.MinConfidence = *p.MinConfidence
	}
	if p.MinVolumeUSD != nil {
		c.MinVolumeUSD = *p.MinVolumeUSD
	}
	return c
}

// AgentStatus is a point-in-time snapshot of the scheduler.
type AgentStatus struct {
	IsRunning        bool    `json:"isRunning"`
	LastCheck        int64   `json:"lastCheck"`
	ChecksPerformed  int64   `json:"checksPerformed"`
	SignalsGenerated int64   `json:"signalsGenerated"`
	ActiveSignals    int     `json:"activeSignals"`
	CurrentSymbol    *string `json:"currentSymbol"`
}

// ServiceConfig is the background service configuration.
type ServiceConfig struct {
	AutoStart      bool          `json:"autoStart"`
	Symbols        []string      `json:"symbols"`
	CheckInterval  time.Duration `json:"-"`
	MinConfidence  float64       `json:"minConfidence"`
	MinVolumeUSD   float64       `json:"minVolumeUSD"`
	NotifyOnSignal bool          `json:"notifyOnSignal"`
}

// DefaultServiceConfig returns the stock background service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		AutoStart:      true,
		Symbols:        append([]string(nil), DefaultSymbols...),
		CheckInterval:  DefaultCheckInterval,
		MinConfidence:  DefaultMinConfidence,
		MinVolumeUSD:   DefaultMinVolumeUSD,
		NotifyOnSignal: true,
	}
}

// ServiceStatus is what the background service reports.
type ServiceStatus struct {
	Initialized bool          `json:"isInitialized"`
	Agent       AgentStatus   `json:"agentStatus"`
	Config      ServiceConfig `json:"config"`
}

// MarshalJSON renders the interval in milliseconds.
func (c AgentConfig) MarshalJSON() ([]byte, error) {
	type plain AgentConfig
	return json.Marshal(struct {
		plain
		CheckIntervalMs int64 `json:"checkIntervalMs"`
	}{plain(c), c.CheckInterval.Milliseconds()})
}

// MarshalJSON renders the interval in milliseconds.
func (c ServiceConfig) MarshalJSON() ([]byte, error) {
	type plain ServiceConfig
	return json.Marshal(struct {
		plain
		CheckIntervalMs int64 `json:"checkIntervalMs"`
	}{plain(c), c.CheckInterval.Milliseconds()})
}

// ServiceConfigPatch is a partial service configuration; nil fields take defaults.
type ServiceConfigPatch struct {
	AutoStart      *bool
	Symbols        []string
	CheckInterval  *time.Duration
	MinConfidence  *float64
	MinVolumeUSD   *float64
	NotifyOnSignal *bool
}

// Apply returns c with the patch merged over it.
func (p ServiceConfigPatch) Apply(c ServiceConfig) ServiceConfig {
	if p.AutoStart != nil {
		c.AutoStart = *p.AutoStart
	}
	if len(p.Symbols) > 0 {
		c.Symbols = append([]string(nil), p.Symbols...)
	}
	if p.CheckInterval != nil && *p.CheckInterval > 0 {
		c.CheckInterval = *p.CheckInterval
	}
	if p.MinConfidence != nil {
		c.MinConfidence = *p.MinConfidence
	}
	if p.MinVolumeUSD != nil {
		c.MinVolumeUSD = *p.MinVolumeUSD
	}
	if p.NotifyOnSignal != nil {
		c.NotifyOnSignal = *p.NotifyOnSignal
	}
	return c
}

// AgentPatch is the part of c the agent understands.
func (c ServiceConfig) AgentPatch() AgentConfigPatch {
	interval, minConf, minVol := c.CheckInterval, c.MinConfidence, c.MinVolumeUSD
	return AgentConfigPatch{
		Symbols:       append([]string(nil), c.Symbols...),
		CheckInterval: &interval,
		MinConfidence: &minConf,
		MinVolumeUSD:  &minVol,
	}
}
