package fo

import "strconv"

// State is the protocol state of the FO.
type State int

// FO states. All but Offline are sub-states of Connected.
const (
	Offline State = iota
	Standby
	Requesting
	Observing
	Reporting
)

var stateNames = [...]string{
	Offline:    "Offline",
	Standby:    "Connected{Standby}",
	Requesting: "Connected{Requesting}",
	Observing:  "Connected{Observing}",
	Reporting:  "Connected{Reporting}",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}
