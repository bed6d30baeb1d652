package rumor

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/maxpoletaev/butterfly/membership"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Deterministic encoding keeps equal rumor batches byte-identical, which
	// matters for the ring key MAC and for tests.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("rumor: cbor encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("rumor: cbor decoder initialization failed: " + err.Error())
	}
}

var (
	ErrEmptyEnvelope    = errors.New("rumor envelope has no payload")
	ErrPayloadMismatch  = errors.New("rumor envelope payload does not match its kind")
	ErrUnknownRumorKind = errors.New("unknown rumor kind")
)

// Envelope is the wire form of a single rumor. Exactly one payload field is
// set, the one that matches Kind.
type Envelope struct {
	Kind          Kind                   `cbor:"1,keyasint"`
	Member        *membership.Membership `cbor:"2,keyasint,omitempty"`
	Service       *Service               `cbor:"3,keyasint,omitempty"`
	ServiceConfig *ServiceConfig         `cbor:"4,keyasint,omitempty"`
	ServiceFile   *ServiceFile           `cbor:"5,keyasint,omitempty"`
	Election      *Election              `cbor:"6,keyasint,omitempty"`
	Departure     *Departure             `cbor:"7,keyasint,omitempty"`
}

// Wrap puts a stored rumor into an envelope.
func Wrap(r Rumor) Envelope {
	switch v := r.(type) {
	case Service:
		return Envelope{Kind: KindService, Service: &v}
	case ServiceConfig:
		return Envelope{Kind: KindServiceConfig, ServiceConfig: &v}
	case ServiceFile:
		return Envelope{Kind: KindServiceFile, ServiceFile: &v}
	case Election:
		return Envelope{Kind: KindElection, Election: &v}
	case Departure:
		return Envelope{Kind: KindDeparture, Departure: &v}
	default:
		panic(fmt.Sprintf("unknown rumor type: %T", r))
	}
}

// WrapMember puts a member rumor into an envelope.
func WrapMember(m membership.Membership) Envelope {
	return Envelope{Kind: KindMember, Member: &m}
}

// Key returns the key of the wrapped rumor.
func (e Envelope) Key() (Key, error) {
	if e.Kind == KindMember {
		if e.Member == nil {
			return Key{}, ErrEmptyEnvelope
		}

		return MemberKey(e.Member.Member.ID), nil
	}

	r, err := e.Unwrap()
	if err != nil {
		return Key{}, err
	}

	return r.Key(), nil
}

// Unwrap returns the rumor carried by the envelope. Member rumors are not
// stored rumors and must be read from the Member field directly.
func (e Envelope) Unwrap() (Rumor, error) {
	var (
		r   Rumor
		set bool
	)

	switch e.Kind {
	case KindService:
		if set = e.Service != nil; set {
			r = *e.Service
		}
	case KindServiceConfig:
		if set = e.ServiceConfig != nil; set {
			r = *e.ServiceConfig
		}
	case KindServiceFile:
		if set = e.ServiceFile != nil; set {
			r = *e.ServiceFile
		}
	case KindElection:
		if set = e.Election != nil; set {
			r = *e.Election
		}
	case KindDeparture:
		if set = e.Departure != nil; set {
			r = *e.Departure
		}
	case KindMember:
		return nil, ErrPayloadMismatch
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownRumorKind, e.Kind)
	}

	if !set {
		return nil, ErrEmptyEnvelope
	}

	if e.payloads() != 1 {
		return nil, ErrPayloadMismatch
	}

	return r, nil
}

func (e Envelope) payloads() (n int) {
	for _, set := range []bool{
		e.Member != nil,
		e.Service != nil,
		e.ServiceConfig != nil,
		e.ServiceFile != nil,
		e.Election != nil,
		e.Departure != nil,
	} {
		if set {
			n++
		}
	}

	return n
}

// Marshal encodes a batch of envelopes.
func Marshal(envelopes []Envelope) ([]byte, error) {
	return encMode.Marshal(envelopes)
}

// Unmarshal decodes a batch of envelopes.
func Unmarshal(data []byte) ([]Envelope, error) {
	var envelopes []Envelope

	if err := decMode.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode rumors: %w", err)
	}

	return envelopes, nil
}

// Envelopes wraps the stored rumors for the given keys. Member keys and keys
// of rumors that are gone are skipped.
func (s *Store) Envelopes(keys []Key) []Envelope {
	envelopes := make([]Envelope, 0, len(keys))

	for _, key := range keys {
		if key.Kind == KindMember {
			continue
		}

		if r, ok := s.Get(key); ok {
			envelopes = append(envelopes, Wrap(r))
		}
	}

	return envelopes
}
