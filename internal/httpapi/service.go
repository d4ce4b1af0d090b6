// Package httpapi exposes the event log, subscription registry, and swarm
// directory over HTTP for producers and tooling.
package httpapi

import (
	"github.com/mistakeknot/hivemind/internal/eventlog"
	"github.com/mistakeknot/hivemind/internal/storage"
	"github.com/mistakeknot/hivemind/internal/subscription"
)

type Service struct {
	log      *eventlog.Log
	registry *subscription.Registry
	swarm    storage.SwarmStore
}

func NewService(log *eventlog.Log, registry *subscription.Registry, swarm storage.SwarmStore) *Service {
	return &Service{log: log, registry: registry, swarm: swarm}
}
