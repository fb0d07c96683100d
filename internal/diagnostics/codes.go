package diagnostics

// Error codes for the lowering/emission pipeline
const (
	// Lowering errors (L prefix)
	ErrUnsupportedConstruct = "L0001"
	ErrRestNotLast          = "L0002"
	ErrInvalidPattern       = "L0003"
	ErrInvalidAssignTarget  = "L0004"

	// Scope resolution errors (R prefix)
	ErrUnresolvedLabel     = "R0001"
	ErrBreakOutsideLoop    = "R0002"
	ErrContinueOutsideLoop = "R0003"
	ErrDuplicateBinding    = "R0004"

	// Validator errors (V prefix)
	ErrUnknownKind       = "V0001"
	ErrSchemaShape       = "V0002"
	ErrDanglingRef       = "V0003"
	ErrUnboundReference  = "V0004"
	ErrMissingEntry      = "V0005"
	ErrNoTerminator      = "V0006"
	ErrManyTerminators   = "V0007"
	ErrDanglingCFGEdge   = "V0008"
	WarnUnreachableBlock = "V0009"

	// Extension errors (X prefix)
	ErrPassIncompatible   = "X0001"
	ErrPassDuplicate      = "X0002"
	ErrPassRuntime        = "X0003"
	ErrPassRejected       = "X0004"
	ErrPassNoPolicy       = "X0005"
	WarnPassDeprecated    = "X0006"
	WarnPassOutputDemoted = "X0007"

	// Backend errors (B prefix)
	ErrBackendUnsupported = "B0001"
	ErrBackendDuplicate   = "B0002"

	// Pipeline errors (P prefix)
	ErrBudgetExceeded   = "P0001"
	ErrDeadlineExceeded = "P0002"
)
