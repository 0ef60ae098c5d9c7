package permission

type Decision int

const (
	Unresolved Decision = iota
	Allowed
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unresolved"
	}
}

// Subject is what a guard needs to know about the caller.
type Subject interface {
	GetRole() Role
	GetActive() bool
}

// Requirement is satisfied when the subject holds every capability in Capabilities.
type Requirement struct {
	Capabilities []Capability
}

func Require(caps ...Capability) Requirement {
	return Requirement{Capabilities: caps}
}

// Evaluate resolves a requirement for subject. A nil or inactive subject is denied.
func Evaluate(subject Subject, req Requirement) Decision {
	if subject == nil || !subject.GetActive() {
		return Denied
	}
	role := subject.GetRole()
	if !IsKnown(role) {
		return Denied
	}

	for _, c := range req.Capabilities {
		if !Can(role, c) {
			return Denied
		}
	}
	return Allowed
}
