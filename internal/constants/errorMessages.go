package constants

const (
	StatusSaved          = "Saved"
	StatusPartiallySaved = "Saved with errors"
	StatusNotEditable    = "Section is not editable"
)

const (
	MsgAccessDenied    = "You do not have permission to view this learning plan"
	MsgPluginNotFound  = "Plugin not found"
	MsgSectionNotFound = "Section not found"
	MsgUserNotFound    = "User not found"
	MsgUnexpected      = "An unexpected error occurred"
)
