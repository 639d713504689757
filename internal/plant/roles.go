package plant

// Role tags an Element with its meaning in the plant vocabulary.
type Role string

// Structural roles.
const (
	RoleResources         Role = "Resources"
	RoleProductionLine    Role = "ProductionLine"
	RoleFrame             Role = "Frame"
	RoleTransportUnit     Role = "TransportUnit"
	RoleSledge            Role = "Sledge"
	RoleArm               Role = "Arm"
	RoleSlot              Role = "Slot"
	RoleStation           Role = "Station"
	RoleProducts          Role = "Products"
	RoleEndproduct        Role = "Endproduct"
	RoleWorkpiece         Role = "Workpiece"
	RoleProcesses         Role = "Processes"
	RoleJob               Role = "Job"
	RoleOrder             Role = "Order"
	RoleProductionProcess Role = "ProductionProcess"
)

// Process step roles. Every ProcessStep carries exactly one of these.
const (
	RoleReference            Role = "Reference"
	RoleHome                 Role = "Home"
	RolePark                 Role = "Park"
	RoleMoveTo               Role = "MoveTo"
	RoleMoveToSide           Role = "MoveToSide"
	RoleLEDCheck             Role = "LEDCheck"
	RoleTakeProductAsGripper Role = "TakeProductAsGripper"
	RoleDropProductAsGripper Role = "DropProductAsGripper"
	RoleTakeProductAsStation Role = "TakeProductAsStation"
	RoleDropProductAsStation Role = "DropProductAsStation"
)

// StepRoles lists the process step roles in table order.
var StepRoles = []Role{
	RoleReference,
	RoleHome,
	RolePark,
	RoleMoveTo,
	RoleMoveToSide,
	RoleLEDCheck,
	RoleTakeProductAsGripper,
	RoleDropProductAsGripper,
	RoleTakeProductAsStation,
	RoleDropProductAsStation,
}

// IsStep reports whether r is one of the process step roles.
func (r Role) IsStep() bool {
	for _, s := range StepRoles {
		if r == s {
			return true
		}
	}
	return false
}

// InterfaceKind classifies an InterfacePoint.
type InterfaceKind string

// Interface kinds used as link endpoints.
const (
	ResourceProcess   InterfaceKind = "ResourceProcess"
	EndproductProcess InterfaceKind = "EndproductProcess"
	WorkpieceProcess  InterfaceKind = "WorkpieceProcess"
)

// Well-known attribute names.
const (
	AttrID     = "id"
	AttrSide   = "side"
	AttrX      = "xPos"
	AttrY      = "yPos"
	AttrZ      = "zPos"
	AttrColor  = "color"
	AttrType   = "type"
	AttrSlotID = "slotID"

	AttrDepartureID   = "departureID"
	AttrDestinationID = "destinationID"
)
