package virtual

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
)

// Library maps scene object names to the ids of their library templates.
type Library map[string]string

// Built-in library object ids.
const (
	frameObjectID     = "ff85bbe5-2aeb-4c01-bb64-0f8dfc12098f"
	unitObjectID      = "7dd7e406-719e-4c11-957a-45de93030239"
	slotObjectID      = "a0f5aa08-e603-464e-93f5-20d836e016f4"
	stationObjectID   = "5b9b2b48-69ee-4904-a439-34b337179755"
	armLogicObjectID  = "0b555d63-9999-4fc4-b63b-146eee64d83a"
	sledgeLogicObject = "8e78b9ca-8222-4437-9e69-d27b6e6fe800"
)

// Scene object names that are not derived from slot data.
const (
	ObjectFrame         = "frame"
	ObjectTransportUnit = "transportUnit"
	ObjectSlot          = "slot"
	ObjectArmLogic      = "Logic_ar_arduino"
	ObjectSledgeLogic   = "Logic_ss_arduino"
)

var defaultLibrary = Library{
	ObjectFrame:           frameObjectID,
	ObjectTransportUnit:   unitObjectID,
	ObjectSlot:            slotObjectID,
	"productSink_red":     stationObjectID,
	"productSink_green":   stationObjectID,
	"productSink_blue":    stationObjectID,
	"productSource_red":   stationObjectID,
	"productSource_green": stationObjectID,
	"productSource_blue":  stationObjectID,
	ObjectArmLogic:        armLogicObjectID,
	ObjectSledgeLogic:     sledgeLogicObject,
}

// DefaultLibrary returns the ids of the stock twin library.
func DefaultLibrary() Library {
	return maps.Clone(defaultLibrary)
}

// LoadLibrary reads a library export directory. Every subdirectory is one
// object; the last non-empty line of its guid.txt is the object id.
func LoadLibrary(dir string) (Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}

	lib := make(Library)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := readLastLine(filepath.Join(dir, entry.Name(), "guid.txt"))
		if err != nil {
			return nil, fmt.Errorf("library object %s: %w", entry.Name(), err)
		}
		if id != "" {
			lib[entry.Name()] = id
		}
	}
	return lib, nil
}

func readLastLine(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the configured library dir
	if err != nil {
		return "", err
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last, scanner.Err()
}

// Lookup returns the id of object name.
func (l Library) Lookup(name string) (string, error) {
	id, ok := l[name]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownLibraryObject, name)
	}
	return id, nil
}
