package virtual

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/plantline/internal/infrastructure/mqtt"
	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
)

func testGraph(t *testing.T) *plant.Graph {
	t.Helper()
	g, err := topology.Build("PlantProject", []topology.SlotRow{
		{ID: 1, Color: "red", Type: topology.TypeSource},
		{ID: 2, Color: "red", Type: topology.TypeSink},
		{ID: 3},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestBuildScene(t *testing.T) {
	s, err := BuildScene(testGraph(t), DefaultLibrary(), Config{})
	if err != nil {
		t.Fatalf("BuildScene() error = %v", err)
	}

	wantNames := []string{"frame", "transportUnit", "slot1", "productSource_red", "slot2", "productSink_red", "slot3", "Logic_ss_arduino", "Logic_ar_arduino"}
	if len(s.Placements) != len(wantNames) {
		t.Fatalf("got %d placements, want %d: %+v", len(s.Placements), len(wantNames), s.Placements)
	}
	byName := make(map[string]Placement)
	for i, p := range s.Placements {
		if p.Name != wantNames[i] {
			t.Errorf("placement %d = %q, want %q", i, p.Name, wantNames[i])
		}
		if p.LibraryID == "" {
			t.Errorf("placement %q has no library id", p.Name)
		}
		byName[p.Name] = p
	}

	_, x, y, z := topology.Placement(2)
	slot2 := byName["slot2"]
	want := Vec3{x / 1000, y / 1000, z / 1000}
	for i := range want {
		if math.Abs(slot2.Position[i]-want[i]) > 1e-9 {
			t.Errorf("slot2 position = %v, want %v", slot2.Position, want)
			break
		}
	}
	if slot2.Rotation[2] != 180 {
		t.Errorf("left slot rotation = %v, want 180", slot2.Rotation)
	}
	if byName["productSink_red"].Rotation[2] != 180 {
		t.Error("station on the left rail is not rotated")
	}
	if byName["slot1"].Rotation[2] != 0 {
		t.Errorf("right slot rotation = %v, want 0", byName["slot1"].Rotation)
	}
}

func TestBuildScene_Variables(t *testing.T) {
	s, err := BuildScene(testGraph(t), DefaultLibrary(), Config{})
	if err != nil {
		t.Fatalf("BuildScene() error = %v", err)
	}

	decl := make(map[string]Declaration)
	for _, d := range s.Variables {
		if _, dup := decl[d.Name]; dup {
			t.Errorf("variable %q declared twice", d.Name)
		}
		decl[d.Name] = d
	}

	for name, initial := range map[string]string{
		"ar_command":      "standby",
		"ss_command":      "standby",
		"ar_commandState": "undefined",
		"ss_commandState": "undefined",
		"sledge_posTol":   "0.004",
		"slot3_color":     "off",
	} {
		if decl[name].Initial != initial {
			t.Errorf("%s initial = %q, want %q", name, decl[name].Initial, initial)
		}
	}
	if _, ok := decl["slot4_color"]; ok {
		t.Error("declared a color variable for a slot the line does not have")
	}
}

func TestBuildScene_UnknownLibraryObject(t *testing.T) {
	lib := DefaultLibrary()
	delete(lib, "productSink_red")

	_, err := BuildScene(testGraph(t), lib, Config{})
	if !errors.Is(err, ErrUnknownLibraryObject) {
		t.Errorf("BuildScene() error = %v, want ErrUnknownLibraryObject", err)
	}
}

func TestBuildScene_MissingFrame(t *testing.T) {
	g := plant.NewGraph("Empty")
	if _, err := BuildScene(g, DefaultLibrary(), Config{}); !errors.Is(err, ErrInvalidScene) {
		t.Errorf("BuildScene() error = %v, want ErrInvalidScene", err)
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name, "guid.txt"), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("frame", "old-id\nnew-id\n\n")
	write("slot", "slot-id")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("not an object"), 0o600); err != nil {
		t.Fatal(err)
	}

	lib, err := LoadLibrary(dir)
	if err != nil {
		t.Fatalf("LoadLibrary() error = %v", err)
	}
	if len(lib) != 2 || lib["frame"] != "new-id" || lib["slot"] != "slot-id" {
		t.Errorf("LoadLibrary() = %v", lib)
	}

	if err := os.MkdirAll(filepath.Join(dir, "broken"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLibrary(dir); err == nil {
		t.Error("LoadLibrary() accepted an object without guid.txt")
	}
}

func TestImport(t *testing.T) {
	s, err := BuildScene(testGraph(t), DefaultLibrary(), Config{})
	if err != nil {
		t.Fatalf("BuildScene() error = %v", err)
	}
	twin := newFakeTwin()

	if err := Import(context.Background(), twin, 1, s, nil); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	got := twin.published()
	if len(got) != 2 {
		t.Fatalf("published %d messages, want 2", len(got))
	}
	if got[0].topic != (mqtt.Topics{}).SceneInsert() || got[1].topic != (mqtt.Topics{}).SceneVariables() {
		t.Errorf("topics = %q, %q", got[0].topic, got[1].topic)
	}
	var placements []Placement
	if err := json.Unmarshal([]byte(got[0].payload), &placements); err != nil {
		t.Fatalf("unmarshal placements: %v", err)
	}
	if len(placements) != len(s.Placements) {
		t.Errorf("published %d placements, want %d", len(placements), len(s.Placements))
	}

	twin.setConnected(false)
	if err := Import(context.Background(), twin, 1, s, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Import() disconnected error = %v, want ErrNotConnected", err)
	}
}
