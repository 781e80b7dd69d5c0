package chain

import (
	"fmt"

	"egt-segmenter/internal/models"
)

// ProcessingStep transforms the segmentation state in place.
type ProcessingStep interface {
	Apply(s *models.Segmentation) error
	Name() string
}

type ProcessingChain struct {
	steps []ProcessingStep
}

func NewProcessingChain(steps []ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

// Execute runs every step in order and stops at the first failure.
func (pc *ProcessingChain) Execute(s *models.Segmentation) error {
	for _, step := range pc.steps {
		if err := step.Apply(s); err != nil {
			return fmt.Errorf("step %s failed: %w", step.Name(), err)
		}
	}

	return nil
}

func (pc *ProcessingChain) AddStep(step ProcessingStep) {
	pc.steps = append(pc.steps, step)
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
