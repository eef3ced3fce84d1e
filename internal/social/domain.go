package social

import (
	"fmt"
	"strings"
)

// Domain is the deity affiliation of a religion. A religion has exactly one.
type Domain uint8

const (
	DomainUnknown Domain = iota
	DomainCraft
	DomainWild
	DomainWar
	DomainHarvest
	DomainStone
)

var domainNames = [...]string{
	DomainUnknown: "unknown",
	DomainCraft:   "craft",
	DomainWild:    "wild",
	DomainWar:     "war",
	DomainHarvest: "harvest",
	DomainStone:   "stone",
}

// Domains lists every selectable domain.
func Domains() []Domain {
	return []Domain{DomainCraft, DomainWild, DomainWar, DomainHarvest, DomainStone}
}

func (d Domain) String() string {
	if int(d) < len(domainNames) {
		return domainNames[d]
	}
	return fmt.Sprintf("domain(%d)", uint8(d))
}

// Valid reports whether d names a selectable domain.
func (d Domain) Valid() bool {
	return d > DomainUnknown && int(d) < len(domainNames)
}

// ParseDomain converts a domain name to a Domain.
func ParseDomain(s string) (Domain, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range Domains() {
		if domainNames[d] == s {
			return d, true
		}
	}
	return DomainUnknown, false
}

func (d Domain) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Domain) UnmarshalText(b []byte) error {
	parsed, ok := ParseDomain(string(b))
	if !ok {
		return fmt.Errorf("unknown domain %q", string(b))
	}
	*d = parsed
	return nil
}

// Visibility controls whether a religion can be joined without an invitation.
type Visibility uint8

const (
	Public Visibility = iota
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// ParseVisibility converts "public"/"private" to a Visibility.
func ParseVisibility(s string) (Visibility, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, true
	case "private":
		return Private, true
	}
	return Public, false
}

func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Visibility) UnmarshalText(b []byte) error {
	parsed, ok := ParseVisibility(string(b))
	if !ok {
		return fmt.Errorf("unknown visibility %q", string(b))
	}
	*v = parsed
	return nil
}
