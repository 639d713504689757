package command

import (
	"fmt"

	"github.com/nerrad567/plantline/internal/plant"
)

// Extract finds the single Job of g and linearizes it.
func Extract(g *plant.Graph) ([]Command, error) {
	job, err := plant.One(g.Find(plant.WithRole(plant.RoleJob)), "job")
	if err != nil {
		return nil, err
	}
	return ExtractJob(job)
}

// ExtractJob walks job depth-first in document order and emits one Command
// per process step.
func ExtractJob(job *plant.Element) ([]Command, error) {
	var cmds []Command
	for e := range plant.Subtree(job) {
		role, ok := e.StepRole()
		if !ok {
			continue
		}
		cmd, err := fromStep(e, role)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", e.Name, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func fromStep(step *plant.Element, role plant.Role) (Command, error) {
	e := table[role]
	slotID, hasSlot := step.Int(plant.AttrSlotID)
	if e.slot && !hasSlot {
		return Command{}, fmt.Errorf("%w: %s needs a slot id", ErrMissingParameter, role)
	}
	color, _ := step.Str(plant.AttrColor)
	return Encode(role, slotID, color)
}
