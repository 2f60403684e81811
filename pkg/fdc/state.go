package fdc

import "strconv"

// State is the protocol state of the FDC.
type State int

// FDC states. Offline only lasts until Run starts.
const (
	Offline State = iota
	OnlineWaiting
	OnlineFiring
)

func (s State) String() string {
	switch s {
	case Offline:
		return "Offline"
	case OnlineWaiting:
		return "Online{Waiting}"
	case OnlineFiring:
		return "Online{Firing}"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}
