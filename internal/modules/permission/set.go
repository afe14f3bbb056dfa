package permission

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Set is an immutable capability set backed by a bitmask.
type Set uint32

func NewSet(caps ...Capability) Set {
	var s Set
	for _, c := range caps {
		if c.Valid() {
			s |= 1 << c
		}
	}
	return s
}

func (s Set) Has(c Capability) bool { return c.Valid() && s&(1<<c) != 0 }

func (s Set) Union(o Set) Set { return s | o }

// Contains reports whether every capability of o is in s.
func (s Set) Contains(o Set) bool { return s&o == o }

func (s Set) Len() int {
	n := 0
	for c := ViewProducts; c < capabilityEnd; c++ {
		if s.Has(c) {
			n++
		}
	}
	return n
}

// Capabilities lists the members in declaration order.
func (s Set) Capabilities() []Capability {
	out := make([]Capability, 0, s.Len())
	for c := ViewProducts; c < capabilityEnd; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Names returns sorted wire names, the form stored in store_members.permissions.
func (s Set) Names() []string {
	caps := s.Capabilities()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.String()
	}
	sort.Strings(names)
	return names
}

func ParseSet(names []string) (Set, error) {
	var s Set
	for _, n := range names {
		c, err := ParseCapability(n)
		if err != nil {
			return 0, fmt.Errorf("parse permission set: %w", err)
		}
		s |= NewSet(c)
	}
	return s, nil
}

// MarshalJSON encodes the set as its sorted wire names.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *Set) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	parsed, err := ParseSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
