package utils

import (
	"fmt"
	"net"
	"net/netip"
)

// LocalIPv4 returns the first non-loopback IPv4 address of an up interface
func LocalIPv4() (netip.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip, ok := netip.AddrFromSlice(ipNet.IP.To4())
			if ok && ip.Is4() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
				return ip, nil
			}
		}
	}

	return netip.Addr{}, fmt.Errorf("no non-loopback IPv4 address found")
}

// SubnetHosts returns up to limit usable host addresses of the /24 containing ip
func SubnetHosts(ip netip.Addr, limit int) ([]string, error) {
	if !ip.Is4() {
		return nil, fmt.Errorf("not an IPv4 address: %s", ip)
	}

	prefix, err := ip.Prefix(24)
	if err != nil {
		return nil, err
	}

	broadcast := prefix.Addr().As4()
	broadcast[3] = 255
	last := netip.AddrFrom4(broadcast)

	hosts := make([]string, 0, limit)
	for addr := prefix.Addr().Next(); addr.IsValid() && addr != last && len(hosts) < limit; addr = addr.Next() {
		hosts = append(hosts, addr.String())
	}
	return hosts, nil
}
