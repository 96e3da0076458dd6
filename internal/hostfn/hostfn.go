// Package hostfn implements the native functions a PAC script can call:
// myIpAddress and dnsResolve. The logic here has no engine dependency;
// backends receive the functions as core.HostFunc values and only turn a
// returned error into a script exception.
package hostfn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/cryguy/pacrunner/internal/core"
	"golang.org/x/net/idna"
)

// Script-visible function names.
const (
	MyIPAddress = "myIpAddress"
	DNSResolve  = "dnsResolve"
)

var (
	ErrNoProxy       = errors.New("no current proxy")
	ErrNoInterface   = errors.New("proxy has no interface")
	ErrInterfaceAddr = errors.New("interface address lookup failed")
	ErrBadParameters = errors.New("bad parameters")
	ErrNotHostname   = errors.New("not a bare hostname")
	ErrResolve       = errors.New("hostname resolution failed")
)

// hostProfile maps names for lookup without the STD3 restrictions, so
// intranet names with underscores still resolve.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// Resolver is the subset of *net.Resolver used by dnsResolve.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Bindings holds the dependencies of the host functions. Proxy must not
// block or take locks held by the caller of the script: host functions run
// synchronously inside script evaluation.
type Bindings struct {
	Proxy         func() *core.Proxy
	InterfaceAddr func(name string) (netip.Addr, error)
	Resolver      Resolver
	Timeout       time.Duration
}

// New returns Bindings backed by the system interface table and resolver.
func New(proxy func() *core.Proxy, timeout time.Duration) *Bindings {
	return &Bindings{
		Proxy:         proxy,
		InterfaceAddr: InterfaceAddr,
		Resolver:      net.DefaultResolver,
		Timeout:       timeout,
	}
}

// MyIPAddress returns the IPv4 address of the active proxy's interface.
func (b *Bindings) MyIPAddress() (string, error) {
	var p *core.Proxy
	if b.Proxy != nil {
		p = b.Proxy()
	}
	if p == nil {
		return "", ErrNoProxy
	}
	if p.Interface == "" {
		return "", ErrNoInterface
	}
	addr, err := b.InterfaceAddr(p.Interface)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInterfaceAddr, p.Interface, err)
	}
	if !addr.Unmap().Is4() {
		return "", fmt.Errorf("%w: %s has no IPv4 address", ErrInterfaceAddr, p.Interface)
	}
	return addr.Unmap().String(), nil
}

// DNSResolve resolves a bare hostname to its first IPv4 address.
func (b *Bindings) DNSResolve(host string) (string, error) {
	if err := CheckHostname(host); err != nil {
		return "", err
	}
	ascii, err := hostProfile.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrNotHostname, host, err)
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = core.DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	addrs, err := b.Resolver.LookupNetIP(ctx, "ip4", ascii)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrResolve, ascii, err)
	}
	for _, a := range addrs {
		if a.Unmap().Is4() {
			return a.Unmap().String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s: no IPv4 address", ErrResolve, ascii)
}

// ThrowError carries the message thrown into the script for a failed host
// function call. Err is the underlying cause.
type ThrowError struct {
	Msg string
	Err error
}

func (e *ThrowError) Error() string { return e.Msg }
func (e *ThrowError) Unwrap() error { return e.Err }

// ThrowMessage maps a host function failure to the exception text scripts see.
func ThrowMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoProxy):
		return "No current proxy"
	case errors.Is(err, ErrNoInterface):
		return "Error fetching interface"
	case errors.Is(err, ErrInterfaceAddr):
		return "Error fetching IP address"
	case errors.Is(err, ErrBadParameters):
		return "Bad parameters"
	default:
		return "Failed to resolve"
	}
}

func throw(err error) error {
	return &ThrowError{Msg: ThrowMessage(err), Err: err}
}

// Funcs returns the script bindings in registration order.
func (b *Bindings) Funcs() []core.HostFunc {
	return []core.HostFunc{
		{
			Name: MyIPAddress,
			Call: func(_ []string) (string, error) {
				addr, err := b.MyIPAddress()
				if err != nil {
					return "", throw(err)
				}
				return addr, nil
			},
		},
		{
			Name: DNSResolve,
			Call: func(args []string) (string, error) {
				if len(args) != 1 {
					return "", throw(fmt.Errorf("%w: %s takes 1 argument, got %d", ErrBadParameters, DNSResolve, len(args)))
				}
				addr, err := b.DNSResolve(args[0])
				if err != nil {
					return "", throw(err)
				}
				return addr, nil
			},
		},
	}
}
