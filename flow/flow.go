// Package flow implements the conversational engine that walks a user
// through the lost/found report dialogue: step topology, per-step
// handlers, payload accumulation, and event dispatch.
package flow

// Flow identifies the top-level dialogue type.
type Flow string

const (
	// FlowLost is the "report a lost item" dialogue.
	FlowLost Flow = "lost"
	// FlowFound is the "report a found item" dialogue.
	FlowFound Flow = "found"
)

// Flows lists every dialogue type in registration order.
var Flows = []Flow{FlowLost, FlowFound}

// Valid reports whether f names a known flow.
func (f Flow) Valid() bool {
	return f == FlowLost || f == FlowFound
}

// ListingType maps the flow to the listing type stored on the draft.
func (f Flow) ListingType() string {
	if f == FlowFound {
		return "FOUND"
	}
	return "LOST"
}

// Stage is one position within a flow's linear chain.
type Stage string

const (
	StageCategory   Stage = "category"
	StageAttributes Stage = "attributes"
	StagePhoto      Stage = "photo"
	StageLocation   Stage = "location"
	StageSecrets    Stage = "secrets"
	StageConfirm    Stage = "confirm"
)

// stageChain is the forward order of stages within every flow.
var stageChain = []Stage{
	StageCategory,
	StageAttributes,
	StagePhoto,
	StageLocation,
	StageSecrets,
	StageConfirm,
}

// Step is a persisted state machine position: a (flow, stage) pair
// serialized as "<flow>_<stage>", or the flow-independent StepIdle.
type Step string

// StepIdle means the user has no dialogue in progress. It is never
// persisted: absence of a state record implies idle.
const StepIdle Step = "idle"

var stepFlows = map[Step]Flow{}

func init() {
	for _, f := range Flows {
		for _, s := range stageChain {
			stepFlows[StepFor(f, s)] = f
		}
	}
}

// StepFor returns the step for the given flow and stage.
func StepFor(f Flow, s Stage) Step {
	return Step(string(f) + "_" + string(s))
}

// Flow resolves the owning flow of a step. Idle and unknown steps have none.
func (s Step) Flow() (Flow, bool) {
	f, ok := stepFlows[s]
	return f, ok
}

// Stage resolves the stage component of a step.
func (s Step) Stage() (Stage, bool) {
	f, ok := stepFlows[s]
	if !ok {
		return "", false
	}
	return Stage(string(s)[len(f)+1:]), true
}

// Known reports whether s is a registered step or idle.
func (s Step) Known() bool {
	if s == StepIdle {
		return true
	}
	_, ok := stepFlows[s]
	return ok
}
