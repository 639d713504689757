package serial

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Controller USB vendor ids: Arduino and WCH (CH340 USB-serial).
var controllerVIDs = []string{"2341", "1A86"}

// controllerNames are substrings of product names that mark a controller port.
var controllerNames = []string{"duino", "wch"}

// Discover lists the USB ports that look like line controllers.
func Discover() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}

	var out []string
	for _, p := range ports {
		if isController(p) {
			out = append(out, p.Name)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoPorts
	}
	return out, nil
}

func isController(p *enumerator.PortDetails) bool {
	if p == nil || !p.IsUSB {
		return false
	}
	for _, vid := range controllerVIDs {
		if strings.EqualFold(p.VID, vid) {
			return true
		}
	}
	product := strings.ToLower(p.Product)
	for _, name := range controllerNames {
		if strings.Contains(product, name) {
			return true
		}
	}
	return false
}
