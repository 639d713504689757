package plant

import (
	"errors"
	"slices"
	"testing"
)

func buildSample(t *testing.T) (*Graph, *Element, *Element) {
	t.Helper()
	g := NewGraph("PlantProject")
	resources := NewElement("Resources", RoleResources)
	if err := g.AddRoot(resources); err != nil {
		t.Fatalf("AddRoot() error = %v", err)
	}
	line := NewElement("Demonstrator", RoleProductionLine)
	if err := resources.AddChild(line); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	arm := NewElement("Arm", RoleArm)
	sledge := NewElement("Sledge", RoleSledge)
	for _, e := range []*Element{arm, sledge} {
		if err := line.AddChild(e); err != nil {
			t.Fatalf("AddChild(%s) error = %v", e.Name, err)
		}
	}
	return g, arm, sledge
}

func TestElement_Attributes(t *testing.T) {
	e := NewElement("Slot3", RoleSlot)
	e.Set(AttrID, Number(3)).Set(AttrSide, Enum("right")).Set(AttrX, Number(275))
	e.Set(AttrID, Number(4))

	attrs := e.Attributes()
	names := []string{attrs[0].Name, attrs[1].Name, attrs[2].Name}
	if !slices.Equal(names, []string{AttrID, AttrSide, AttrX}) {
		t.Errorf("attribute order = %v", names)
	}
	if id, ok := e.Int(AttrID); !ok || id != 4 {
		t.Errorf("Int(id) = %d, %v; want 4, true", id, ok)
	}
	if side, ok := e.Str(AttrSide); !ok || side != "right" {
		t.Errorf("Str(side) = %q, %v", side, ok)
	}
	if _, ok := e.Str(AttrID); ok {
		t.Error("Str() on a number should fail")
	}
	if _, ok := e.Float("missing"); ok {
		t.Error("Float() on a missing attribute should fail")
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Number(62.5), "62.5"},
		{Number(99), "99"},
		{Enum("left"), "left"},
		{String("Red"), "Red"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestElement_AddChildDuplicate(t *testing.T) {
	parent := NewElement("Resources", RoleResources)
	if err := parent.AddChild(NewElement("Slot1", RoleSlot)); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	err := parent.AddChild(NewElement("Slot1", RoleSlot))
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("AddChild() error = %v, want ErrDuplicateName", err)
	}
}

func TestGraph_Link(t *testing.T) {
	g, arm, sledge := buildSample(t)
	step := NewElement("MoveTo1", RoleMoveTo)
	process := NewElement("Processes", RoleProcesses)
	if err := g.AddRoot(process); err != nil {
		t.Fatal(err)
	}
	if err := process.AddChild(step); err != nil {
		t.Fatal(err)
	}

	stepPoint := step.AddInterface("ResourceProcess", ResourceProcess)
	if _, err := g.Link("link", stepPoint, sledge.AddInterface("ResourceProcess", ResourceProcess)); err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	peers := slices.Collect(g.Peers(step, ResourceProcess))
	if len(peers) != 1 || peers[0] != sledge {
		t.Errorf("Peers() = %v, want [Sledge]", peers)
	}
	if got := slices.Collect(g.Peers(arm, ResourceProcess)); len(got) != 0 {
		t.Errorf("Peers(arm) = %v, want none", got)
	}

	if _, err := g.Link("self", stepPoint, step.AddInterface("other", WorkpieceProcess)); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("self link error = %v, want ErrInvalidLink", err)
	}
	if _, err := g.Link("nil", stepPoint, nil); !errors.Is(err, ErrInvalidLink) {
		t.Errorf("nil endpoint error = %v, want ErrInvalidLink", err)
	}

	if g.InterfaceByID(stepPoint.ID) != stepPoint {
		t.Error("InterfaceByID() did not find the step interface")
	}

	g.RemoveRoot("Processes")
	if len(g.Links()) != 0 {
		t.Errorf("links after RemoveRoot = %d, want 0", len(g.Links()))
	}
}

func TestGraph_WalkOrder(t *testing.T) {
	g, _, _ := buildSample(t)
	var names []string
	for e := range g.Walk() {
		names = append(names, e.Name)
	}
	want := []string{"Resources", "Demonstrator", "Arm", "Sledge"}
	if !slices.Equal(names, want) {
		t.Errorf("Walk() = %v, want %v", names, want)
	}
}

func TestOne(t *testing.T) {
	g, arm, _ := buildSample(t)

	got, err := One(g.Find(WithRole(RoleArm)), "arm")
	if err != nil || got != arm {
		t.Fatalf("One(arm) = %v, %v", got, err)
	}

	_, err = One(g.Find(WithRole(RoleStation)), "station")
	if !errors.Is(err, ErrLookupNotFound) {
		t.Errorf("One(station) error = %v, want ErrLookupNotFound", err)
	}
	if errors.Is(err, ErrLookupAmbiguous) {
		t.Error("not-found error should not match ErrLookupAmbiguous")
	}

	_, err = One(g.Find(WithRole(RoleArm, RoleSledge)), "carriage")
	if !errors.Is(err, ErrLookupAmbiguous) {
		t.Errorf("One(carriage) error = %v, want ErrLookupAmbiguous", err)
	}
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) || lookupErr.Count != 2 {
		t.Errorf("LookupError = %+v, want count 2", lookupErr)
	}

	first, ok := First(g.Find(WithRole(RoleArm, RoleSledge)))
	if !ok || first != arm {
		t.Errorf("First() = %v, want Arm", first)
	}
}

func TestPredicates(t *testing.T) {
	g, _, sledge := buildSample(t)
	sledge.Set(AttrColor, Enum("red"))

	got := slices.Collect(g.Find(Named("Sledge"), AttrIs(AttrColor, Enum("red"))))
	if len(got) != 1 {
		t.Errorf("Find() = %d elements, want 1", len(got))
	}
	got = slices.Collect(g.Find(Named("Sledge"), AttrIs(AttrColor, Enum("blue"))))
	if len(got) != 0 {
		t.Errorf("Find() = %d elements, want 0", len(got))
	}
}

func TestAttrIs_ComparesKind(t *testing.T) {
	e := NewElement("Slot1", RoleSlot)
	e.Set(AttrID, Number(1)).Set(AttrColor, Enum("red"))

	tests := []struct {
		name  string
		attr  string
		want  Value
		match bool
	}{
		{"number", AttrID, Number(1), true},
		{"number rendered as enum", AttrID, Enum("1"), false},
		{"number rendered as string", AttrID, String("1"), false},
		{"other number", AttrID, Number(2), false},
		{"enum", AttrColor, Enum("red"), true},
		{"enum text as string", AttrColor, String("red"), false},
		{"missing attribute", AttrSide, Enum("left"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AttrIs(tt.attr, tt.want)(e); got != tt.match {
				t.Errorf("AttrIs(%s, %v) = %v, want %v", tt.attr, tt.want, got, tt.match)
			}
		})
	}
}

func TestRole_IsStep(t *testing.T) {
	for _, r := range StepRoles {
		if !r.IsStep() {
			t.Errorf("%s.IsStep() = false", r)
		}
	}
	if RoleSlot.IsStep() {
		t.Error("Slot.IsStep() = true")
	}
	e := NewElement("s", RoleProductionProcess)
	if _, ok := e.StepRole(); ok {
		t.Error("StepRole() on a process should fail")
	}
}
