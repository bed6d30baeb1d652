package model

type Member struct {
	ID          string `json:"id"`
	Incarnation uint64 `json:"incarnation"`
	Address     string `json:"address"`
	SwimPort    uint16 `json:"swim_port"`
	GossipPort  uint16 `json:"gossip_port"`
	Permanent   bool   `json:"permanent"`
	Health      string `json:"health"`
}

type Rumor struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
	ID   string `json:"id"`
	Data any    `json:"data"`
}

type Detector struct {
	Round  uint64 `json:"round"`
	Paused bool   `json:"paused"`
}

type GossipResponse struct {
	ID         string   `json:"id"`
	MemberList []Member `json:"member_list"`
	RumorList  []Rumor  `json:"rumor_list"`
	Detector   Detector `json:"detector"`
}

type CensusEntry struct {
	MemberID    string `json:"member_id"`
	Health      string `json:"health"`
	Leader      bool   `json:"leader"`
	Suitability uint64 `json:"suitability"`
	Address     string `json:"address,omitempty"`
	Port        uint16 `json:"port,omitempty"`
}

type CensusGroup struct {
	Name            string        `json:"name"`
	TotalPopulation int           `json:"total_population"`
	AlivePopulation int           `json:"alive_population"`
	MinimumQuorum   bool          `json:"minimum_quorum"`
	HasQuorum       bool          `json:"has_quorum"`
	Leader          string        `json:"leader,omitempty"`
	Members         []CensusEntry `json:"members"`
}

type CensusResponse struct {
	Groups []CensusGroup `json:"groups"`
}

type Election struct {
	ServiceGroup string   `json:"service_group"`
	Candidate    string   `json:"candidate"`
	Term         uint64   `json:"term"`
	Status       string   `json:"status"`
	Votes        []string `json:"votes"`
}

type ElectionResponse struct {
	Elections []Election `json:"elections"`
}
