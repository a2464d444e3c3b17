// Package fingerprint builds HTTP transports that present a browser TLS
// ClientHello when fetching pages from the target site.
package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello to present.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard crypto/tls
	ProfileRandom  Profile = "random" // randomized uTLS hello
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedALPN,
}

// ParseProfile maps a configured name onto a Profile. An empty name is
// ProfileGo.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" || p == ProfileGo {
		return ProfileGo, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("unknown tls profile %q", s)
	}
	return p, nil
}

// Transport returns an http.RoundTripper presenting the profile's ClientHello.
// ProfileGo returns a clone of http.DefaultTransport. Proxies come from the
// environment.
func Transport(p Profile) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p == ProfileGo || p == "" {
		return transport, nil
	}

	id, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("unknown tls profile %q", p)
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := client(tcpConn, &utls.Config{ServerName: host}, id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}
	// connections from DialTLSContext are not *tls.Conn, so the transport
	// cannot speak h2 over them
	transport.ForceAttemptHTTP2 = false

	return transport, nil
}

// client builds the uTLS connection. Where the hello can be expressed as a
// spec, ALPN is pinned to http/1.1 to match what the transport will speak.
func client(conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return utls.UClient(conn, cfg, id), nil
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("apply %s hello: %w", id.Str(), err)
	}
	return uConn, nil
}
