package progress

// StepPatch carries the fields UpdateStep merges into a step. Nil fields are
// left untouched.
type StepPatch struct {
	Status  *StepStatus
	Message *string
	Error   *string
	TxHash  *string
}

// Light is the derived stage status shown by the UI.
type Light string

const (
	LightRed    Light = "red"
	LightYellow Light = "yellow"
	LightGreen  Light = "green"
	LightGray   Light = "gray"
)

// clone deep-copies a BridgeProgress so updates never alias the input.
func clone(p *BridgeProgress) *BridgeProgress {
	out := &BridgeProgress{
		Direction: p.Direction,
		Stages:    make([]Stage, len(p.Stages)),
	}
	for i, stage := range p.Stages {
		copied := stage
		copied.Steps = make([]Step, len(stage.Steps))
		copy(copied.Steps, stage.Steps)
		out.Stages[i] = copied
	}
	return out
}

// UpdateStep returns a new BridgeProgress with the named step merged with the
// patch. An unknown step id is a no-op returning the input unchanged: the UI
// may hold stale ids across template changes and must not crash on them.
func UpdateStep(p *BridgeProgress, id StepID, patch StepPatch) *BridgeProgress {
	if !hasStep(p, id) {
		return p
	}

	out := clone(p)
	for si := range out.Stages {
		for i := range out.Stages[si].Steps {
			s := &out.Stages[si].Steps[i]
			if s.ID != id {
				continue
			}
			if patch.Status != nil {
				s.Status = *patch.Status
			}
			if patch.Message != nil {
				s.Message = *patch.Message
			}
			if patch.Error != nil {
				s.Error = *patch.Error
			}
			if patch.TxHash != nil {
				s.TxHash = *patch.TxHash
			}
			return out
		}
	}
	return out
}

// RetryStep resets the named step to pending and clears its error, message and
// transaction hash. Sibling steps are untouched. Unknown ids are a no-op.
func RetryStep(p *BridgeProgress, id StepID) *BridgeProgress {
	if !hasStep(p, id) {
		return p
	}

	out := clone(p)
	for si := range out.Stages {
		for i := range out.Stages[si].Steps {
			s := &out.Stages[si].Steps[i]
			if s.ID != id {
				continue
			}
			s.Status = StepPending
			s.Message = ""
			s.Error = ""
			s.TxHash = ""
			return out
		}
	}
	return out
}

// ToggleStage flips the collapsed flag of the named stage. Display-only state;
// the orchestrator never reads it.
func ToggleStage(p *BridgeProgress, id StageID) *BridgeProgress {
	found := false
	for _, stage := range p.Stages {
		if stage.ID == id {
			found = true
			break
		}
	}
	if !found {
		return p
	}

	out := clone(p)
	for i := range out.Stages {
		if out.Stages[i].ID == id {
			out.Stages[i].Collapsed = !out.Stages[i].Collapsed
		}
	}
	return out
}

// CurrentStage returns the stage the run is at: the first stage holding a
// loading or failed step, else the first stage with a pending step, else
// false when everything is terminal.
func CurrentStage(p *BridgeProgress) (Stage, bool) {
	for _, stage := range p.Stages {
		for _, s := range stage.Steps {
			if s.Status == StepLoading || s.Status == StepFailed {
				return stage, true
			}
		}
	}
	for _, stage := range p.Stages {
		for _, s := range stage.Steps {
			if s.Status == StepPending {
				return stage, true
			}
		}
	}
	return Stage{}, false
}

// TrafficLight derives a stage status from its steps. Red wins over yellow,
// yellow over green; green requires every step completed; everything else
// (all pending/skipped mixes) is gray.
func TrafficLight(stage Stage) Light {
	anyLoading := false
	allCompleted := len(stage.Steps) > 0
	for _, s := range stage.Steps {
		switch s.Status {
		case StepFailed:
			return LightRed
		case StepLoading:
			anyLoading = true
		}
		if s.Status != StepCompleted {
			allCompleted = false
		}
	}
	if anyLoading {
		return LightYellow
	}
	if allCompleted {
		return LightGreen
	}
	return LightGray
}

func hasStep(p *BridgeProgress, id StepID) bool {
	_, ok := p.FindStep(id)
	return ok
}
