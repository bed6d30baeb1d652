package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/butterfly/api/model"
	"github.com/maxpoletaev/butterfly/internal/telemetry"
)

type GossipHandler struct {
	cluster Cluster
}

func NewGossipHandler(cluster Cluster) *GossipHandler {
	return &GossipHandler{
		cluster: cluster,
	}
}

func (api *GossipHandler) Register(r chi.Router) {
	r.Method(http.MethodGet, "/gossip", telemetry.Instrument("gossip", http.HandlerFunc(api.getGossip)))
}

func (api *GossipHandler) getGossip(w http.ResponseWriter, r *http.Request) {
	members := api.cluster.Members()
	respMembers := make([]model.Member, len(members))

	for i, m := range members {
		respMembers[i] = model.Member{
			ID:          m.Member.ID,
			Incarnation: m.Member.Incarnation,
			Address:     m.Member.Address,
			SwimPort:    m.Member.SwimPort,
			GossipPort:  m.Member.GossipPort,
			Permanent:   m.Member.Permanent,
			Health:      m.Health.String(),
		}
	}

	rumors := api.cluster.Rumors()
	respRumors := make([]model.Rumor, len(rumors))

	for i, r := range rumors {
		key := r.Key()
		respRumors[i] = model.Rumor{
			Kind: key.Kind.String(),
			Key:  key.Key,
			ID:   key.ID,
			Data: r,
		}
	}

	render.JSON(w, r, model.GossipResponse{
		ID:         api.cluster.ID(),
		MemberList: respMembers,
		RumorList:  respRumors,
		Detector: model.Detector{
			Round:  api.cluster.Round(),
			Paused: api.cluster.Paused(),
		},
	})
}
