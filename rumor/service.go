package rumor

const (
	serviceConfigID = "service_config"
	electionID      = "election"
	departureKey    = "departure"
)

// Service announces that a member runs a service in a service group. It is
// the census entry of that member.
type Service struct {
	MemberID     string `cbor:"1,keyasint"`
	ServiceGroup string `cbor:"2,keyasint"`
	Incarnation  uint64 `cbor:"3,keyasint"`
	Package      string `cbor:"4,keyasint,omitempty"`
	Initialized  bool   `cbor:"5,keyasint,omitempty"`
	Suitability  uint64 `cbor:"6,keyasint,omitempty"`
	Address      string `cbor:"7,keyasint,omitempty"`
	Port         uint16 `cbor:"8,keyasint,omitempty"`
}

func (s Service) Key() Key {
	return Key{Kind: KindService, Key: s.ServiceGroup, ID: s.MemberID}
}

func (Service) isRumor() {}

// ServiceConfig carries the configuration of a service group. The payload
// is opaque and may be encrypted.
type ServiceConfig struct {
	ServiceGroup string `cbor:"1,keyasint"`
	Incarnation  uint64 `cbor:"2,keyasint"`
	Encrypted    bool   `cbor:"3,keyasint,omitempty"`
	Config       []byte `cbor:"4,keyasint"`
}

func (c ServiceConfig) Key() Key {
	return Key{Kind: KindServiceConfig, Key: c.ServiceGroup, ID: serviceConfigID}
}

func (ServiceConfig) isRumor() {}

// ServiceFile carries a named file for every member of a service group.
type ServiceFile struct {
	ServiceGroup string `cbor:"1,keyasint"`
	Incarnation  uint64 `cbor:"2,keyasint"`
	Encrypted    bool   `cbor:"3,keyasint,omitempty"`
	Filename     string `cbor:"4,keyasint"`
	Body         []byte `cbor:"5,keyasint"`
}

func (f ServiceFile) Key() Key {
	return Key{Kind: KindServiceFile, Key: f.ServiceGroup, ID: f.Filename}
}

func (ServiceFile) isRumor() {}

// Departure tells the ring that a member has been permanently removed.
type Departure struct {
	MemberID string `cbor:"1,keyasint"`
}

func (d Departure) Key() Key {
	return Key{Kind: KindDeparture, Key: departureKey, ID: d.MemberID}
}

func (Departure) isRumor() {}
