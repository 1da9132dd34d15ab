package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// A Dialer connects to an address and returns a Channel.
type Dialer func(addr string) (Channel, error)

// A ListenFunc listens on an address.
type ListenFunc func(addr string) (Listener, error)

// Dialers is a map of transport schemes to Dialers
// and includes all builtin transports.
var Dialers = map[string]Dialer{
	"tcp":  DialTCP,
	"unix": DialUnix,
	"ws":   DialWS,
	"quic": DialQUIC,
	"stdio": func(_ string) (Channel, error) {
		return DialStdio()
	},
}

// Listeners is a map of transport schemes to ListenFuncs.
var Listeners = map[string]ListenFunc{
	"tcp": func(addr string) (Listener, error) {
		l, err := ListenTCP(addr)
		if err != nil {
			return nil, err
		}
		return l, nil
	},
	"unix": func(path string) (Listener, error) {
		l, err := ListenUnix(path)
		if err != nil {
			return nil, err
		}
		return l, nil
	},
	"ws": func(addr string) (Listener, error) {
		l, err := ListenWS(addr)
		if err != nil {
			return nil, err
		}
		return l, nil
	},
	"quic": func(addr string) (Listener, error) {
		return ListenQUIC(addr, nil)
	},
	"stdio": func(_ string) (Listener, error) {
		return ListenStdio()
	},
}

// ParseAddr splits an address such as unix:///tmp/agent.sock or
// tcp://127.0.0.1:9000 into its scheme and target. Addresses starting with
// a slash are multiaddrs.
func ParseAddr(addr string) (scheme, target string, err error) {
	if strings.HasPrefix(addr, "/") {
		return "multiaddr", addr, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" {
		return "", "", fmt.Errorf("transport: address %q has no scheme", addr)
	}
	if u.Opaque != "" {
		return u.Scheme, u.Opaque, nil
	}
	return u.Scheme, u.Host + u.Path, nil
}

// Dial connects to addr using the registered transport for its scheme.
func Dial(addr string) (Channel, error) {
	scheme, target, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}
	if scheme == "multiaddr" {
		return DialMultiaddr(target)
	}
	d, ok := Dialers[scheme]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not available in Dialers", scheme)
	}
	return d(target)
}

// Listen listens on addr using the registered transport for its scheme.
func Listen(addr string) (Listener, error) {
	scheme, target, err := ParseAddr(addr)
	if err != nil {
		return nil, err
	}
	if scheme == "multiaddr" {
		l, err := ListenMultiaddr(target)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	l, ok := Listeners[scheme]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not available in Listeners", scheme)
	}
	return l(target)
}
