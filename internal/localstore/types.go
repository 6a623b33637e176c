package localstore

// Queue keys. Each holds an ordered list of pending operation envelopes.
const (
	KeyPendingCatches       = "pending_catches"
	KeyPendingTournaments   = "pending_tournaments"
	KeyPendingParticipation = "pending_participations"
	KeyPendingInviteUpdates = "pending_invite_status_updates"
)

// Mirror keys.
const (
	KeyAllCatches     = "all_catches"
	KeyAllTournaments = "all_tournaments"
	KeyAllPosts       = "all_posts"
)

// UserCatchesKey is the per-user catches mirror.
func UserCatchesKey(userID string) string { return "user_catches_" + userID }

// UserTournamentsKey is the per-user tournaments mirror.
func UserTournamentsKey(userID string) string { return "user_tournaments_" + userID }

// PendingInvitesKey is the mirror of invites waiting for userID's answer.
func PendingInvitesKey(userID string) string { return "pending_invites_" + userID }

// Backends selectable through LOCAL_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)
