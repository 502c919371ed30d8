package edit

import (
	"github.com/matzehuels/brickbook/pkg/document"
	"github.com/matzehuels/brickbook/pkg/geom"
	"github.com/matzehuels/brickbook/pkg/partgraph"
)

// Command is one undoable edit. The concrete types below are the only
// implementations.
type Command interface {
	// Kind names the edit for logs and menus.
	Kind() string
	command()
}

// MoveItem moves a placed node to a new position. Node is a step, CSI,
// PLI, PLI item, callout or submodel preview.
type MoveItem struct {
	Node document.TreeNode
	To   geom.Point

	from geom.Point
}

// ResizePage changes the size of one page.
type ResizePage struct {
	Page *document.Page
	Size geom.Size

	from geom.Size
}

// MovePart moves a part instance from one step to another step of the
// same submodel.
type MovePart struct {
	Part     *partgraph.PartInstance
	From, To *document.Step

	index int
}

// AddStep inserts an empty step into a page.
type AddStep struct {
	Page  *document.Page
	Index int

	step *document.Step
}

// DeleteStep removes a step and hands its parts and callouts to the
// previous step of the same sequence, or to the next one when it is first.
type DeleteStep struct {
	Step *document.Step

	absorb absorbed
}

// SplitStep moves Parts out of Step into a new step on a new page right
// after Step's page. Steps that followed Step on its page move along.
type SplitStep struct {
	Step  *document.Step
	Parts []*partgraph.PartInstance

	newStep  *document.Step
	newPage  *document.Page
	indices  []int
	trailing []*document.Step
}

// MergeStep pulls the next step of the same sequence into Step.
type MergeStep struct {
	Step *document.Step

	next   *document.Step
	absorb absorbed
}

// MoveStepToPage moves a step to another page of the same submodel.
type MoveStepToPage struct {
	Step  *document.Step
	Page  *document.Page
	Index int

	fromPage  *document.Page
	fromIndex int
}

// DisplacePart pulls a part out of place along a direction, or puts it
// back with DirectionNone.
type DisplacePart struct {
	Part      *partgraph.PartInstance
	Direction partgraph.Direction
	Distance  float64

	oldDisp  *partgraph.Displacement
	oldArrow *partgraph.Arrow
	newDisp  *partgraph.Displacement
	newArrow *partgraph.Arrow
	done     bool
}

// InsertPage adds a page holding one empty step to a submodel.
type InsertPage struct {
	Submodel *document.Submodel
	Index    int

	page *document.Page
}

// DeletePage removes a page. Its parts and callouts go to the last step of
// the previous page, or the first step of the next page.
type DeletePage struct {
	Page *document.Page

	index  int
	steps  []*document.Step
	absorb []absorbed
}

// LockPage pins a page's layout so relayout leaves it alone.
type LockPage struct {
	Page   *document.Page
	Locked bool

	was bool
}

// SubmodelToCallout folds a child submodel's steps into a callout on the
// step that uses it.
type SubmodelToCallout struct {
	Step     *document.Step
	Submodel *document.Submodel

	callout   *document.Callout
	parent    *document.Submodel
	index     int
	pages     []*document.Page
	pageSteps [][]*document.Step
}

func (*MoveItem) Kind() string          { return "move_item" }
func (*ResizePage) Kind() string        { return "resize_page" }
func (*MovePart) Kind() string          { return "move_part" }
func (*AddStep) Kind() string           { return "add_step" }
func (*DeleteStep) Kind() string        { return "delete_step" }
func (*SplitStep) Kind() string         { return "split_step" }
func (*MergeStep) Kind() string         { return "merge_step" }
func (*MoveStepToPage) Kind() string    { return "move_step_to_page" }
func (*DisplacePart) Kind() string      { return "displace_part" }
func (*InsertPage) Kind() string        { return "insert_page" }
func (*DeletePage) Kind() string        { return "delete_page" }
func (*LockPage) Kind() string          { return "lock_page" }
func (*SubmodelToCallout) Kind() string { return "submodel_to_callout" }

func (*MoveItem) command()          {}
func (*ResizePage) command()        {}
func (*MovePart) command()          {}
func (*AddStep) command()           {}
func (*DeleteStep) command()        {}
func (*SplitStep) command()         {}
func (*MergeStep) command()         {}
func (*MoveStepToPage) command()    {}
func (*DisplacePart) command()      {}
func (*InsertPage) command()        {}
func (*DeletePage) command()        {}
func (*LockPage) command()          {}
func (*SubmodelToCallout) command() {}
