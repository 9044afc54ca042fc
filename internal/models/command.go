package models

import (
	"github.com/google/uuid"
)

// Command action names accepted by the dispatcher.
const (
	ActionVerifySecret    = "verify_secret"
	ActionBanUser         = "ban_user"
	ActionUnbanUser       = "unban_user"
	ActionBanChannel      = "ban_channel"
	ActionUnbanChannel    = "unban_channel"
	ActionDeleteUser      = "delete_user"
	ActionDeactivateUser  = "deactivate_user"
	ActionRenameUser      = "rename_user"
	ActionResetCredential = "reset_credential"
	ActionWipeData        = "wipe_data"
	ActionPurgeAudit      = "purge_audit"
)

// Command is one privileged request. ActorID comes from the session; the
// supplied secret is re-verified on every dispatch regardless of session
// state.
type Command struct {
	Action         string     `json:"action" binding:"required"`
	ActorID        uuid.UUID  `json:"-"`
	TargetID       uuid.UUID  `json:"target_id"`
	Reason         string     `json:"reason"`
	DurationSecs   int64      `json:"duration"` // 0 = permanent, negative rejected
	NewSecret      string     `json:"new_secret"`
	NewDisplayName string     `json:"new_display_name"`
	SuppliedSecret string     `json:"supplied_secret" binding:"required"`
}

// CommandResult is the structured outcome returned for every dispatch.
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
