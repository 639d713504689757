// Package plant is the structural model of a production line.
//
// A Graph is one named instance hierarchy: a forest of Elements, each with
// roles, ordered typed attributes, owned children and InterfacePoints. Links
// join two InterfacePoints on different Elements and are owned by the Graph,
// never by an Element.
//
// Queries are typed predicates over lazy sequences:
//
//	stations := plant.Filter(g.Walk(), plant.WithRole(plant.RoleStation))
//	arm, err := plant.One(g.Find(plant.WithRole(plant.RoleArm)), "arm")
//
// One fails with ErrLookupNotFound on zero matches and ErrLookupAmbiguous on
// more than one. First keeps the first match in document order.
//
// A Graph has a single owner while it is built and is not safe for
// concurrent mutation.
package plant
