package constants

// Capabilities checked against the host platform.
const (
	CapView           = "local/plp:view"
	CapViewRestricted = "local/plp:viewrestricted"
	CapViewPrivate    = "local/plp:viewprivate"
	CapEdit           = "local/plp:edit"
	CapManage         = "local/plp:manage"
)

// ContextLevel mirrors the host platform's trust context levels.
type ContextLevel string

const (
	ContextSystem ContextLevel = "system"
	ContextCourse ContextLevel = "course"
	ContextUser   ContextLevel = "user"
)
