package hostfn

import (
	"fmt"
	"strings"
)

// hostnameRejects are characters that cannot appear in a bare hostname but
// do appear in URLs, credentials and shell-ish strings. Scripts sometimes
// pass a whole URL to dnsResolve; resolving that would leak it to DNS.
const hostnameRejects = ":%?!,;@\\'*|<>{}[]()+=$&~#\" /\t\r\n\v\f"

// CheckHostname rejects names that are not plausible bare hostnames.
func CheckHostname(host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty name", ErrNotHostname)
	}
	if i := strings.IndexAny(host, hostnameRejects); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrNotHostname, host, host[i])
	}
	return nil
}
