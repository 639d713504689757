package command

import "fmt"

// Scan protocol constants.
const (
	// ScanSlots is the number of slots a scan probes.
	ScanSlots = 10

	// ReadPropertiesVerb asks the arm to read the station in front of it.
	ReadPropertiesVerb = "readProperties"

	// DiscoveryMarker starts a response line that carries slot properties
	// as '_' separated tokens: marker, id, color, type.
	DiscoveryMarker = ReadPropertiesVerb + CompletionSuffix
)

// ReadProperties returns the discovery command for slot id.
func ReadProperties(id int) Command {
	return Command{Opcode: fmt.Sprintf("%s_SLOT%d", ReadPropertiesVerb, id), Class: Arm}
}

// ScanScript is the canned discovery sequence: initialize the carriage, then
// move to and read each of n slots.
func ScanScript(n int) []Command {
	script := []Command{
		{Opcode: "moveToSide_SLOT0", Class: Arm},
		{Opcode: "reference", Class: Sledge},
		{Opcode: "home", Class: Sledge},
		{Opcode: "ledCheck", Class: Arm},
	}
	for id := 1; id <= n; id++ {
		script = append(script,
			Command{Opcode: fmt.Sprintf("moveTo_SLOT%d", id), Class: Sledge},
			ReadProperties(id),
		)
	}
	return script
}
