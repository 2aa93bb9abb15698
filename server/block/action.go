package block

// ActionKind discriminates the two edits a player can make to a voxel.
type ActionKind uint8

const (
	// ActionPlace places a block into an empty voxel.
	ActionPlace ActionKind = iota
	// ActionDestroy clears a non-air voxel.
	ActionDestroy
)

// Action is a single candidate edit to one voxel. Place carries the block to
// set; Destroy leaves Block as Air.
type Action struct {
	Kind  ActionKind
	Block Block
}

// Place returns an action placing the block passed.
func Place(b Block) Action {
	return Action{Kind: ActionPlace, Block: b}
}

// Destroy returns an action clearing the voxel.
func Destroy() Action {
	return Action{Kind: ActionDestroy}
}

// Apply applies the action to the block passed and returns the resulting
// block and whether the action was applicable: placing requires an air voxel
// and a non-air block, destroying requires a non-air voxel.
func (a Action) Apply(b Block) (Block, bool) {
	switch a.Kind {
	case ActionPlace:
		if b == Air && a.Block != Air {
			return a.Block, true
		}
	case ActionDestroy:
		if b != Air {
			return Air, true
		}
	}
	return b, false
}

// ApplyUnchecked applies the action without validating the previous block.
// It is used when replaying the action log onto freshly generated chunks,
// where the log is known to be consistent.
func (a Action) ApplyUnchecked() Block {
	if a.Kind == ActionPlace {
		return a.Block
	}
	return Air
}
