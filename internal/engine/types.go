// Package engine implements the QC Engine Controller (spec.md §4.1): the
// state machine that drives one Run from validated inputs through
// variant testing, judgment, and cleanup, wiring together every other
// package this repository builds.
package engine

import (
	"time"

	"github.com/qcbench/qcbench/internal/judgeorch"
	"github.com/qcbench/qcbench/internal/store"
)

// EngineVersion is stamped into every results document's engineVersion
// field (spec.md §6's persisted-state shape).
const EngineVersion = "qcbench/0.1"

// Params are one Run invocation's inputs (spec.md §4.1, §6's CLI surface).
type Params struct {
	TargetModel        string
	VariantSpecifiers  []string
	TestSuitePath      string
	BaseTag            string
	JudgeSpecifier     string
	JudgeBestSpecifier string
	JudgeMode          judgeorch.Mode
	RunOptions         store.RunOptions
	Think              any
	Timeout            time.Duration
	JudgeContextLength int

	Force        bool
	Rejudge      bool
	OnDemand     bool
	NoUnloadAll  bool
	Verbose      bool

	OutputPath string
	Repository string
}

// Exit codes mirror spec.md §4.1/§6.
const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitCancelled = 2
)

// Result is a completed Run's outcome.
type Result struct {
	ExitCode   int
	OutputPath string

	// PulledOnDemand lists the tags of every variant the results document
	// flags as pulled on demand (spec.md §4.5), including variants pulled
	// by earlier runs against the same document.
	PulledOnDemand []string
}

// state names the controller's position in spec.md §4.1's state machine,
// used only for diagnostic logging.
type state string

const (
	stateInit             state = "INIT"
	stateValidate         state = "VALIDATE"
	stateLoadOrCreateDoc  state = "LOAD_OR_CREATE_DOC"
	stateVerifyEndpoints  state = "VERIFY_ENDPOINTS"
	stateExpandTags       state = "EXPAND_TAGS"
	stateVerifyModels     state = "VERIFY_MODELS"
	stateBaseDecision     state = "BASE_DECISION"
	stateVariantLoop      state = "VARIANT_LOOP"
	stateJudgmentCatchup  state = "JUDGMENT_CATCHUP"
	stateBackgroundJoin   state = "BACKGROUND_JOIN"
	stateCleanup          state = "CLEANUP"
	stateDone             state = "DONE"
	stateCancelled        state = "CANCELLED"
	stateError            state = "ERROR"
)
