package admin

// Admin-facing messages. Every dispatch result draws from this set; failure
// wording never reveals more than the enumerated message for its kind.
const (
	MsgUnauthorized     = "Password verification failed."
	MsgUnknownAction    = "Unknown admin action."
	MsgInvalidParameter = "Invalid parameters for this action."
	MsgForbidden        = "This action cannot target an administrator."
	MsgNotFound         = "Target not found."
	MsgNotBanned        = "No active ban for this subject."
	MsgBanConflict      = "Subject already has an active ban."
	MsgStorageFailure   = "The operation failed and was rolled back."

	MsgSecretVerified  = "Password verified."
	MsgUserBanned      = "User banned."
	MsgUserUnbanned    = "User ban lifted."
	MsgChannelBanned   = "Channel banned."
	MsgChannelUnbanned = "Channel ban lifted."
	MsgUserDeleted     = "User and all related data deleted."
	MsgUserDeactivated = "User deactivated."
	MsgUserRenamed     = "User renamed."
	MsgCredentialReset = "Credential reset."
	MsgDataWiped       = "Message and relationship data wiped."
	MsgAuditPurged     = "Ban audit history purged."
)
