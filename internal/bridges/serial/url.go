package serial

import (
	"fmt"
	"net/url"
	"strings"
)

// Port networks.
const (
	networkSerial = "serial"
	networkTCP    = "tcp"
)

// AutoPorts in the port list asks for USB discovery.
const AutoPorts = "auto"

// parsePortURL splits a port URL into network and address.
//
// Supported formats:
//   - "serial:///dev/ttyUSB0" or a bare device path
//   - "COM3" (bare Windows port name)
//   - "tcp://10.0.0.5:4001"
func parsePortURL(raw string) (network, address string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty port")
	}
	if !strings.Contains(raw, "://") {
		return networkSerial, raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case networkSerial:
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" {
			return "", "", fmt.Errorf("serial URL %q has no device", raw)
		}
		return networkSerial, path, nil
	case networkTCP:
		if u.Host == "" || u.Port() == "" {
			return "", "", fmt.Errorf("tcp URL %q needs host:port", raw)
		}
		return networkTCP, u.Host, nil
	default:
		return "", "", fmt.Errorf("unsupported scheme %q (use serial or tcp)", u.Scheme)
	}
}
