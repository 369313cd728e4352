package handlers

// Action types recorded in the audit log
const (
	ActionCommandStart       = "command_start"
	ActionCommandHelp        = "command_help"
	ActionCommandStats       = "command_stats"
	ActionCommandPending     = "command_pending"
	ActionCommandSummary     = "command_summary"
	ActionCommandClear       = "command_clear_db"
	ActionCommandSetRoom     = "command_setroom"
	ActionCommandUnsetRoom   = "command_unsetroom"
	ActionCommandRooms       = "command_rooms"
	ActionCommandToggleMovie = "command_toggle_movie"
	ActionCommandSearch      = "command_search"
)
