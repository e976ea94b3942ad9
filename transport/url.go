package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// ProfileURL is a parsed transport profile URI: opc.udp://host:port/,
// opc.mqtt://host:port/topic, opc.eth://iface, opc.nats://host:port/subject.
type ProfileURL struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// ParseProfileURL parses a PubSub transport profile URI. An unrecognized
// scheme is reported as an error the caller should surface as
// BadInvalidArgument.
func ParseProfileURL(raw string) (ProfileURL, error) {
	schemeIdx := strings.Index(raw, "://")
	if schemeIdx < 0 {
		return ProfileURL{}, fmt.Errorf("transport: %q has no scheme", raw)
	}
	scheme := raw[:schemeIdx]
	rest := raw[schemeIdx+3:]

	switch scheme {
	case "opc.udp", "opc.mqtt", "opc.nats":
		return parseHostPortPath(scheme, rest)
	case "opc.eth":
		return ProfileURL{Scheme: scheme, Host: rest}, nil
	default:
		return ProfileURL{}, fmt.Errorf("transport: unknown scheme %q", scheme)
	}
}

func parseHostPortPath(scheme, rest string) (ProfileURL, error) {
	var hostport, path string
	if i := strings.Index(rest, "/"); i >= 0 {
		hostport, path = rest[:i], rest[i+1:]
	} else {
		hostport = rest
	}
	if hostport == "" {
		return ProfileURL{}, fmt.Errorf("transport: %q missing host", scheme)
	}

	host := hostport
	port := 0
	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		host = hostport[:i]
		p, err := strconv.Atoi(hostport[i+1:])
		if err != nil {
			return ProfileURL{}, fmt.Errorf("transport: invalid port in %q: %w", hostport, err)
		}
		port = p
	}
	return ProfileURL{Scheme: scheme, Host: host, Port: port, Path: path}, nil
}

// Addr returns "host:port" for dialing a TCP/UDP socket.
func (u ProfileURL) Addr() string {
	return fmt.Sprintf("%s:%d", u.Host, u.Port)
}
