package core

// Proxy is the host-owned active proxy configuration: the network interface
// the proxy applies to and the PAC script source. Drivers borrow it and never
// modify it.
type Proxy struct {
	Interface string
	Script    string
}

// EntryPoint is the function every PAC script must declare.
const EntryPoint = "FindProxyForURL"
