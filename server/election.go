package server

import (
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/butterfly/census"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

func (s *Server) groupElection(group string) (rumor.Election, bool) {
	r, ok := s.rumors.Get(rumor.Election{ServiceGroup: group}.Key())
	if !ok {
		return rumor.Election{}, false
	}

	return r.(rumor.Election), true
}

// Election returns the current election of the service group.
func (s *Server) Election(group string) (rumor.Election, bool) {
	return s.groupElection(group)
}

// Census builds the census of the service group from the current member list
// and rumors.
func (s *Server) Census(group string) *census.Group {
	health := make(map[string]membership.Health)
	for _, m := range s.members.Members() {
		health[m.Member.ID] = m.Health
	}

	snap := census.Snapshot{
		Group:         group,
		SelfID:        s.members.SelfID(),
		MinimumQuorum: s.conf.MinimumQuorum,
		Health:        health,
	}

	for _, r := range s.rumors.ByKey(rumor.KindService, group) {
		snap.Services = append(snap.Services, r.(rumor.Service))
	}

	for _, r := range s.rumors.ByKey(rumor.KindServiceFile, group) {
		snap.Files = append(snap.Files, r.(rumor.ServiceFile))
	}

	if e, ok := s.groupElection(group); ok {
		snap.Election = &e
	}

	if r, ok := s.rumors.Get(rumor.ServiceConfig{ServiceGroup: group}.Key()); ok {
		cfg := r.(rumor.ServiceConfig)
		snap.Config = &cfg
	}

	return census.New(snap)
}

// CensusRing builds the census of every known service group.
func (s *Server) CensusRing() *census.Ring {
	groups := s.rumors.Keys(rumor.KindService)

	censuses := make([]*census.Group, 0, len(groups))
	for _, group := range groups {
		censuses = append(censuses, s.Census(group))
	}

	return census.NewRing(censuses...)
}

// StartElection starts an election in the service group with the local member
// as the candidate. An election with a higher term already in progress takes
// precedence.
func (s *Server) StartElection(group string, term uint64) error {
	r, ok := s.rumors.Get(rumor.Service{MemberID: s.members.SelfID(), ServiceGroup: group}.Key())
	if !ok {
		return ErrNotInGroup
	}

	svc := r.(rumor.Service)
	e := rumor.NewElection(group, svc.MemberID, svc.Suitability, term)

	if s.rumors.Insert(e) {
		level.Info(s.logger).Log("msg", "election started", "group", group, "term", term)
	}

	s.vote(group)

	return nil
}

// vote casts the local vote in the election of the group, replacing the
// candidate with the local member if it is more suitable, and finishes the
// election once every alive member has voted for the same candidate.
func (s *Server) vote(group string) {
	s.elections.Lock(group)
	defer s.elections.Unlock(group)

	e, ok := s.groupElection(group)
	if !ok || e.Finished() {
		return
	}

	g := s.Census(group)

	me, ok := g.Me()
	if !ok {
		return
	}

	selfID := me.MemberID()
	next := e

	switch {
	case e.MemberID != selfID && rumor.BetterCandidate(selfID, me.Service.Suitability, e.MemberID, e.Suitability):
		next = rumor.NewElection(group, selfID, me.Service.Suitability, e.Term)
	case !e.HasVote(selfID):
		next = e.WithVote(selfID)
	}

	if candidate, ok := g.Member(next.MemberID); ok && candidate.Alive() {
		if g.HasQuorum() && g.AllAliveVoted(next) {
			next = next.Finish()
		}
	}

	if s.rumors.Insert(next) {
		level.Debug(s.logger).Log(
			"msg", "election updated",
			"group", group,
			"candidate", next.MemberID,
			"term", next.Term,
			"votes", len(next.Votes),
			"status", next.Status,
		)

		if next.Finished() {
			level.Info(s.logger).Log("msg", "election finished", "group", group, "leader", next.MemberID, "term", next.Term)
		}
	}
}
