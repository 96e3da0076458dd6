//go:build linux

package hostfn

import (
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// InterfaceAddr returns the primary IPv4 address of the named interface
// using the SIOCGIFADDR ioctl.
func InterfaceAddr(name string) (netip.Addr, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("opening socket: %w", err)
	}
	defer unix.Close(fd)

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %q: %w", name, err)
	}
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFADDR, ifr); err != nil {
		return netip.Addr{}, fmt.Errorf("SIOCGIFADDR %q: %w", name, err)
	}
	raw, err := ifr.Inet4Addr()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %q: %w", name, err)
	}
	addr, ok := netip.AddrFromSlice(raw)
	if !ok {
		return netip.Addr{}, fmt.Errorf("interface %q: malformed address %v", name, raw)
	}
	return addr, nil
}
