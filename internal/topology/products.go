package topology

import (
	"strings"

	"github.com/nerrad567/plantline/internal/plant"
)

// ProductsName is the top-level element holding workpieces and end products.
const ProductsName = "Products"

// WorkpieceName returns the name of the unprocessed product of color.
func WorkpieceName(color string) string { return capitalize(color) + "Unprocessed" }

// EndproductName returns the name of the finished product of color.
func EndproductName(color string) string { return capitalize(color) + "Product" }

// AddProducts creates a Products root with one Workpiece and one Endproduct
// per distinct station color, in ascending slot order. An existing Products
// root is replaced.
func AddProducts(g *plant.Graph) error {
	g.RemoveRoot(ProductsName)

	products := plant.NewElement(ProductsName, plant.RoleProducts)
	seen := make(map[string]bool)
	for _, slot := range Slots(g) {
		station := StationOf(slot)
		if station == nil {
			continue
		}
		color, _ := station.Str(plant.AttrColor)
		if color == "" || seen[color] {
			continue
		}
		seen[color] = true

		workpiece := plant.NewElement(WorkpieceName(color), plant.RoleWorkpiece)
		workpiece.Set(plant.AttrColor, plant.Enum(color))
		workpiece.AddInterface("WorkpieceProcess", plant.WorkpieceProcess)

		endproduct := plant.NewElement(EndproductName(color), plant.RoleEndproduct)
		endproduct.Set(plant.AttrColor, plant.Enum(color))
		endproduct.AddInterface("EndproductProcess", plant.EndproductProcess)

		if err := products.AddChild(workpiece); err != nil {
			return err
		}
		if err := products.AddChild(endproduct); err != nil {
			return err
		}
	}
	return g.AddRoot(products)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
