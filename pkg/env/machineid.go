package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "example-simulators"

// MachineID retrieves an ID identifying the machine, hashed for this
// application. It falls back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

// DefaultNodeID derives a node ID from the role and the machine.
func DefaultNodeID(role string) string {
	id := MachineID()
	if len(id) > 8 {
		id = id[:8]
	}
	return role + "-" + id
}
