package handler

import (
	"github.com/maxpoletaev/butterfly/census"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

// Cluster is the read-only view of the gossip server served over HTTP.
type Cluster interface {
	ID() string
	Members() []membership.Membership
	Rumors() []rumor.Rumor
	CensusRing() *census.Ring
	Round() uint64
	Paused() bool
}
