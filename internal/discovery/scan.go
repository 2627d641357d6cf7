package discovery

import (
	"net/netip"

	"alfred/internal/utils"
)

// Subnet scan limits
const (
	scanHostLimit = 20
)

var (
	// scanPorts are tried on every scanned host
	scanPorts = []int{5001, 5002, 5003}

	// fallbackHosts are used when nothing else produced a candidate
	fallbackHosts = []string{
		"localhost:5001",
		"localhost:5002",
		"127.0.0.1:5001",
		"127.0.0.1:5002",
	}
)

// scanCandidates expands the first hosts of ip's /24 over scanPorts
func scanCandidates(ip netip.Addr) ([]string, error) {
	hosts, err := utils.SubnetHosts(ip, scanHostLimit)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(hosts)*len(scanPorts))
	for _, host := range hosts {
		for _, port := range scanPorts {
			candidates = append(candidates, utils.JoinHostPort(host, port))
		}
	}
	return candidates, nil
}
