package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/butterfly/api/model"
	"github.com/maxpoletaev/butterfly/census"
	"github.com/maxpoletaev/butterfly/internal/telemetry"
)

type CensusHandler struct {
	cluster Cluster
}

func NewCensusHandler(cluster Cluster) *CensusHandler {
	return &CensusHandler{
		cluster: cluster,
	}
}

func (api *CensusHandler) Register(r chi.Router) {
	r.Method(http.MethodGet, "/census", telemetry.Instrument("census", http.HandlerFunc(api.getCensus)))
	r.Method(http.MethodGet, "/election", telemetry.Instrument("election", http.HandlerFunc(api.getElections)))
}

func censusGroup(g *census.Group) model.CensusGroup {
	entries := g.Members()

	resp := model.CensusGroup{
		Name:            g.Name(),
		TotalPopulation: g.TotalPopulation(),
		AlivePopulation: g.AlivePopulation(),
		MinimumQuorum:   g.MinimumQuorum(),
		HasQuorum:       g.HasQuorum(),
		Members:         make([]model.CensusEntry, len(entries)),
	}

	if leader, ok := g.Leader(); ok {
		resp.Leader = leader.MemberID()
	}

	for i, e := range entries {
		resp.Members[i] = model.CensusEntry{
			MemberID:    e.MemberID(),
			Health:      e.Health.String(),
			Leader:      e.Leader,
			Suitability: e.Service.Suitability,
			Address:     e.Service.Address,
			Port:        e.Service.Port,
		}
	}

	return resp
}

func (api *CensusHandler) getCensus(w http.ResponseWriter, r *http.Request) {
	groups := api.cluster.CensusRing().Groups()
	resp := model.CensusResponse{Groups: make([]model.CensusGroup, len(groups))}

	for i, g := range groups {
		resp.Groups[i] = censusGroup(g)
	}

	render.JSON(w, r, resp)
}

// getElections lists the elections that are still running.
func (api *CensusHandler) getElections(w http.ResponseWriter, r *http.Request) {
	resp := model.ElectionResponse{Elections: []model.Election{}}

	for _, g := range api.cluster.CensusRing().Groups() {
		e, ok := g.Election()
		if !ok || e.Finished() {
			continue
		}

		resp.Elections = append(resp.Elections, model.Election{
			ServiceGroup: e.ServiceGroup,
			Candidate:    e.MemberID,
			Term:         e.Term,
			Status:       e.Status.String(),
			Votes:        e.Votes,
		})
	}

	render.JSON(w, r, resp)
}
