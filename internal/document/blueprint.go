package document

import (
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/plantline/internal/plant"
)

// Library names of the blueprint.
const (
	ResourceModel = "Resourcemodel"
	ProcessModel  = "Processmodel"
	ProductModel  = "Productmodel"

	ResourceRoleClassLib = "ResourceRoleClassLib"
	ProcessRoleClassLib  = "ProcessRoleClassLib"
	ProductRoleClassLib  = "ProductRoleClassLib"

	ConnectorInterfaceClassLib = "PPRConnectorInterfaceClassLib"
	AttributeTypeLib           = "AttributeTypeLib"
)

// BlueprintLibraries names the libraries every exported document carries.
var BlueprintLibraries = map[Category][]string{
	SystemUnitClassLibs: {ResourceModel, ProcessModel, ProductModel},
	RoleClassLibs:       {ResourceRoleClassLib, ProcessRoleClassLib, ProductRoleClassLib},
	InterfaceClassLibs:  {ConnectorInterfaceClassLib},
	AttributeTypeLibs:   {AttributeTypeLib},
}

type roleClass struct {
	Name       string   `yaml:"name"`
	Attributes []string `yaml:"attributes,omitempty,flow"`
}

type systemUnit struct {
	Name  string   `yaml:"name"`
	Role  string   `yaml:"role"`
	Ports []string `yaml:"interfaces,omitempty,flow"`
}

type attributeType struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Values []string `yaml:"values,omitempty,flow"`
}

// Blueprint returns the built-in library document. Exports use it when no
// blueprint file is given.
func Blueprint() *Document {
	position := []string{plant.AttrX, plant.AttrY, plant.AttrZ}
	resourceProcess := []string{string(plant.ResourceProcess)}

	d := New("Blueprint")
	d.RoleClassLibs = []Library{
		library(ResourceRoleClassLib, []roleClass{
			{Name: string(plant.RoleResources)},
			{Name: string(plant.RoleProductionLine)},
			{Name: string(plant.RoleFrame), Attributes: position},
			{Name: string(plant.RoleTransportUnit), Attributes: position},
			{Name: string(plant.RoleSledge)},
			{Name: string(plant.RoleArm)},
			{Name: string(plant.RoleSlot), Attributes: append([]string{plant.AttrID, plant.AttrSide}, position...)},
			{Name: string(plant.RoleStation), Attributes: append([]string{plant.AttrColor, plant.AttrType}, position...)},
		}),
		library(ProcessRoleClassLib, processRoles()),
		library(ProductRoleClassLib, []roleClass{
			{Name: string(plant.RoleProducts)},
			{Name: string(plant.RoleWorkpiece), Attributes: []string{plant.AttrColor}},
			{Name: string(plant.RoleEndproduct), Attributes: []string{plant.AttrColor}},
		}),
	}
	d.SystemUnitClassLibs = []Library{
		library(ResourceModel, []systemUnit{
			{Name: "Frame", Role: string(plant.RoleFrame)},
			{Name: "TransportUnit", Role: string(plant.RoleTransportUnit)},
			{Name: "Sledge", Role: string(plant.RoleSledge), Ports: resourceProcess},
			{Name: "Arm", Role: string(plant.RoleArm), Ports: resourceProcess},
			{Name: "Slot", Role: string(plant.RoleSlot)},
			{Name: "Station", Role: string(plant.RoleStation), Ports: resourceProcess},
		}),
		library(ProcessModel, processUnits()),
		library(ProductModel, []systemUnit{
			{Name: "Workpiece", Role: string(plant.RoleWorkpiece), Ports: []string{string(plant.WorkpieceProcess)}},
			{Name: "Endproduct", Role: string(plant.RoleEndproduct), Ports: []string{string(plant.EndproductProcess)}},
		}),
	}
	d.InterfaceClassLibs = []Library{
		library(ConnectorInterfaceClassLib, []string{
			string(plant.ResourceProcess),
			string(plant.EndproductProcess),
			string(plant.WorkpieceProcess),
		}),
	}
	d.AttributeTypeLibs = []Library{
		library(AttributeTypeLib, []attributeType{
			{Name: plant.AttrColor, Kind: string(plant.KindEnum), Values: []string{"red", "green", "blue"}},
			{Name: plant.AttrType, Kind: string(plant.KindEnum), Values: []string{"productSink", "productSource"}},
			{Name: plant.AttrSide, Kind: string(plant.KindEnum), Values: []string{"left", "right"}},
			{Name: plant.AttrID, Kind: string(plant.KindNumber)},
			{Name: plant.AttrSlotID, Kind: string(plant.KindNumber)},
		}),
	}
	return d
}

func processRoles() []roleClass {
	roles := []roleClass{
		{Name: string(plant.RoleProcesses)},
		{Name: string(plant.RoleJob)},
		{Name: string(plant.RoleOrder)},
		{Name: string(plant.RoleProductionProcess), Attributes: []string{plant.AttrDepartureID, plant.AttrDestinationID, plant.AttrColor}},
	}
	for _, r := range plant.StepRoles {
		roles = append(roles, roleClass{Name: string(r), Attributes: []string{plant.AttrSlotID, plant.AttrColor}})
	}
	return roles
}

func processUnits() []systemUnit {
	units := []systemUnit{{Name: "ProductionProcess", Role: string(plant.RoleProductionProcess), Ports: []string{string(plant.EndproductProcess)}}}
	for _, r := range plant.StepRoles {
		units = append(units, systemUnit{
			Name:  string(r),
			Role:  string(r),
			Ports: []string{string(plant.ResourceProcess), string(plant.WorkpieceProcess)},
		})
	}
	return units
}

func library(name string, body any) Library {
	var n yaml.Node
	_ = n.Encode(body) //nolint:errcheck // plain structs and slices always encode
	return Library{Name: name, Content: n}
}
