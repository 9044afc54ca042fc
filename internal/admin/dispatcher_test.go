package admin_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaychat/moderation/internal/admin"
	"github.com/relaychat/moderation/internal/audit"
	"github.com/relaychat/moderation/internal/auth"
	"github.com/relaychat/moderation/internal/models"
)

type banCall struct {
	subject  models.Subject
	reason   string
	actorID  uuid.UUID
	duration int64
}

type fakeBans struct {
	created   []banCall
	lifted    []models.Subject
	purged    int
	createErr error
	liftErr   error
}

func (f *fakeBans) CreateBan(subject models.Subject, reason string, actorID uuid.UUID, durationSecs int64) (*models.BanRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, banCall{subject: subject, reason: reason, actorID: actorID, duration: durationSecs})
	return &models.BanRecord{ID: uuid.New(), Subject: subject, Reason: reason, CreatedBy: actorID, Status: models.BanActive}, nil
}

func (f *fakeBans) LiftBan(subject models.Subject, actorID uuid.UUID) error {
	if f.liftErr != nil {
		return f.liftErr
	}
	f.lifted = append(f.lifted, subject)
	return nil
}

func (f *fakeBans) PurgeAudit() (int64, error) {
	f.purged++
	return 0, nil
}

type fakeChannels struct {
	existing map[uuid.UUID]bool
}

func (f *fakeChannels) Exists(id uuid.UUID) (bool, error) {
	return f.existing[id], nil
}

type fakeCascade struct {
	deleted     []uuid.UUID
	deactivated []uuid.UUID
	wipes       int
	deleteErr   error
}

func (f *fakeCascade) HardDelete(accountID, actorID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, accountID)
	return nil
}

func (f *fakeCascade) Deactivate(accountID, actorID uuid.UUID) error {
	f.deactivated = append(f.deactivated, accountID)
	return nil
}

func (f *fakeCascade) WipeData(actorID uuid.UUID) error {
	f.wipes++
	return nil
}

type testEnv struct {
	dispatcher *admin.Dispatcher
	accounts   *fakeAccounts
	channels   *fakeChannels
	bans       *fakeBans
	cascade    *fakeCascade
	actor      *models.Account
	target     *models.Account
}

const actorSecret = "correct-horse-battery"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	accounts := newFakeAccounts()
	actor := adminAccount(t, actorSecret)
	accounts.add(actor)

	target := &models.Account{
		ID:          uuid.New(),
		Email:       "user@example.com",
		DisplayName: "Some User",
	}
	accounts.add(target)

	channels := &fakeChannels{existing: make(map[uuid.UUID]bool)}
	bans := &fakeBans{}
	cascade := &fakeCascade{}

	gate := admin.NewGate(accounts)
	dispatcher := admin.NewDispatcher(gate, accounts, channels, bans, cascade, audit.New(zerolog.Nop()))

	return &testEnv{
		dispatcher: dispatcher,
		accounts:   accounts,
		channels:   channels,
		bans:       bans,
		cascade:    cascade,
		actor:      actor,
		target:     target,
	}
}

func (e *testEnv) command(action string) models.Command {
	return models.Command{
		Action:         action,
		ActorID:        e.actor.ID,
		TargetID:       e.target.ID,
		Reason:         "spam",
		SuppliedSecret: actorSecret,
	}
}

// nothingMutated asserts that no fake recorded any state change.
func (e *testEnv) nothingMutated(t *testing.T) {
	t.Helper()
	assert.Empty(t, e.bans.created)
	assert.Empty(t, e.bans.lifted)
	assert.Zero(t, e.bans.purged)
	assert.Empty(t, e.cascade.deleted)
	assert.Empty(t, e.cascade.deactivated)
	assert.Zero(t, e.cascade.wipes)
	assert.Empty(t, e.accounts.renamed)
	assert.Empty(t, e.accounts.credentials)
}

func TestDispatch_UnknownAction(t *testing.T) {
	env := newTestEnv(t)

	result := env.dispatcher.Dispatch(env.command("explode_user"))

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgUnknownAction, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_WrongSecret_NothingMutated(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionDeleteUser)
	cmd.SuppliedSecret = "not-the-secret"
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgUnauthorized, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_VerifySecret(t *testing.T) {
	env := newTestEnv(t)

	result := env.dispatcher.Dispatch(env.command(models.ActionVerifySecret))

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgSecretVerified, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_VerifySecret_Wrong(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionVerifySecret)
	cmd.SuppliedSecret = "guess"
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgUnauthorized, result.Message)
}

func TestDispatch_BanUser(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanUser)
	cmd.DurationSecs = 3600
	result := env.dispatcher.Dispatch(cmd)

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgUserBanned, result.Message)
	require.Len(t, env.bans.created, 1)
	call := env.bans.created[0]
	assert.Equal(t, models.AccountSubject(env.target.ID), call.subject)
	assert.Equal(t, "spam", call.reason)
	assert.Equal(t, env.actor.ID, call.actorID)
	assert.Equal(t, int64(3600), call.duration)
}

func TestDispatch_BanUser_PermanentDuration(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanUser)
	cmd.DurationSecs = 0
	result := env.dispatcher.Dispatch(cmd)

	assert.True(t, result.Success)
	require.Len(t, env.bans.created, 1)
	assert.Equal(t, int64(0), env.bans.created[0].duration)
}

func TestDispatch_BanUser_NegativeDuration(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanUser)
	cmd.DurationSecs = -5
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_BanUser_EmptyReason(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanUser)
	cmd.Reason = "  "
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_BanUser_SelfTarget(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanUser)
	cmd.TargetID = env.actor.ID
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_BanUser_AdminTarget_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	env.target.IsAdmin = true

	// The secret is correct; the exemption must hold anyway.
	result := env.dispatcher.Dispatch(env.command(models.ActionBanUser))

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgForbidden, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_BanUser_UnknownTarget(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanUser)
	cmd.TargetID = uuid.New()
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgNotFound, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_BanUser_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.bans.createErr = models.ErrBanConflict

	result := env.dispatcher.Dispatch(env.command(models.ActionBanUser))

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgBanConflict, result.Message)
}

func TestDispatch_UnbanUser(t *testing.T) {
	env := newTestEnv(t)

	result := env.dispatcher.Dispatch(env.command(models.ActionUnbanUser))

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgUserUnbanned, result.Message)
	require.Len(t, env.bans.lifted, 1)
	assert.Equal(t, models.AccountSubject(env.target.ID), env.bans.lifted[0])
}

func TestDispatch_UnbanUser_NotBanned(t *testing.T) {
	env := newTestEnv(t)
	env.bans.liftErr = models.ErrNotBanned

	result := env.dispatcher.Dispatch(env.command(models.ActionUnbanUser))

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgNotBanned, result.Message)
}

func TestDispatch_BanChannel(t *testing.T) {
	env := newTestEnv(t)
	channelID := uuid.New()
	env.channels.existing[channelID] = true

	cmd := env.command(models.ActionBanChannel)
	cmd.TargetID = channelID
	result := env.dispatcher.Dispatch(cmd)

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgChannelBanned, result.Message)
	require.Len(t, env.bans.created, 1)
	assert.Equal(t, models.ChannelSubject(channelID), env.bans.created[0].subject)
}

func TestDispatch_BanChannel_UnknownChannel(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionBanChannel)
	cmd.TargetID = uuid.New()
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgNotFound, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_DeleteUser(t *testing.T) {
	env := newTestEnv(t)

	result := env.dispatcher.Dispatch(env.command(models.ActionDeleteUser))

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgUserDeleted, result.Message)
	require.Len(t, env.cascade.deleted, 1)
	assert.Equal(t, env.target.ID, env.cascade.deleted[0])
}

func TestDispatch_DeleteUser_SelfTarget(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionDeleteUser)
	cmd.TargetID = env.actor.ID
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_DeactivateUser_SelfTarget(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionDeactivateUser)
	cmd.TargetID = env.actor.ID
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_RenameUser(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionRenameUser)
	cmd.NewDisplayName = "  Fresh Name  "
	result := env.dispatcher.Dispatch(cmd)

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgUserRenamed, result.Message)
	assert.Equal(t, "Fresh Name", env.accounts.renamed[env.target.ID])
}

func TestDispatch_RenameUser_TooShort(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionRenameUser)
	cmd.NewDisplayName = "x"
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_ResetCredential(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionResetCredential)
	cmd.NewSecret = "a-new-secret-42"
	result := env.dispatcher.Dispatch(cmd)

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgCredentialReset, result.Message)

	hash, ok := env.accounts.credentials[env.target.ID]
	require.True(t, ok)
	assert.NoError(t, auth.CheckPassword(hash, "a-new-secret-42"))
}

func TestDispatch_ResetCredential_TooShort(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionResetCredential)
	cmd.NewSecret = "short"
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_ResetCredential_AdminTarget_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	env.target.IsAdmin = true

	cmd := env.command(models.ActionResetCredential)
	cmd.NewSecret = "a-new-secret-42"
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgForbidden, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_ResetCredential_SelfTarget(t *testing.T) {
	env := newTestEnv(t)

	cmd := env.command(models.ActionResetCredential)
	cmd.TargetID = env.actor.ID
	cmd.NewSecret = "a-new-secret-42"
	result := env.dispatcher.Dispatch(cmd)

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgInvalidParameter, result.Message)
	env.nothingMutated(t)
}

func TestDispatch_WipeData(t *testing.T) {
	env := newTestEnv(t)

	result := env.dispatcher.Dispatch(env.command(models.ActionWipeData))

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgDataWiped, result.Message)
	assert.Equal(t, 1, env.cascade.wipes)
}

func TestDispatch_PurgeAudit(t *testing.T) {
	env := newTestEnv(t)

	result := env.dispatcher.Dispatch(env.command(models.ActionPurgeAudit))

	assert.True(t, result.Success)
	assert.Equal(t, admin.MsgAuditPurged, result.Message)
	assert.Equal(t, 1, env.bans.purged)
}

func TestDispatch_StorageFailure_GenericMessage(t *testing.T) {
	env := newTestEnv(t)
	env.cascade.deleteErr = errors.New("pq: deadlock detected")

	result := env.dispatcher.Dispatch(env.command(models.ActionDeleteUser))

	assert.False(t, result.Success)
	assert.Equal(t, admin.MsgStorageFailure, result.Message)
	assert.NotContains(t, result.Message, "deadlock")
}
