package model

import (
	"github.com/mauv0809/catch-league/internal/ranking"
)

// TournamentStatus is the lifecycle state of a tournament.
type TournamentStatus string

const (
	StatusOpen TournamentStatus = "open"
	// StatusInProgress is reserved; nothing transitions into it today.
	StatusInProgress TournamentStatus = "in_progress"
	StatusCancelled  TournamentStatus = "cancelled"
	StatusFinished   TournamentStatus = "finished"
)

// InviteStatus is the state of a tournament invite.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

// Catch is a single logged fish capture.
type Catch struct {
	ID           string   `json:"id"`
	LocalID      string   `json:"localId,omitempty"`
	UserID       string   `json:"userId"`
	UserName     string   `json:"userName"`
	Species      string   `json:"species"`
	Weight       float64  `json:"weight"`
	Length       *float64 `json:"length,omitempty"`
	Location     string   `json:"location,omitempty"`
	TournamentID *string  `json:"tournamentId"`
	PhotoURL     *string  `json:"photoUrl"`
	RegisteredAt string   `json:"registeredAt"`
	SyncedAt     *string  `json:"syncedAt,omitempty"`
	Pending      bool     `json:"pending,omitempty"`
}

// Participant is a user enrolled in a tournament.
type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	JoinedAt string `json:"joinedAt"`
	Pending  bool   `json:"pending,omitempty"`
}

// Winner is the frozen snapshot of the top-ranked participant.
type Winner struct {
	UserID       string  `json:"userId"`
	UserName     string  `json:"userName"`
	TotalWeight  float64 `json:"totalWeight"`
	TotalCatches int     `json:"totalCatches"`
	Score        int     `json:"score"`
}

// Tournament is a time-boxed competition.
type Tournament struct {
	ID               string           `json:"id"`
	LocalID          string           `json:"localId,omitempty"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	CreatorID        string           `json:"creatorId"`
	CreatorName      string           `json:"creatorName"`
	CreatedAt        string           `json:"createdAt"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	Status           TournamentStatus `json:"status"`
	MaxParticipants  int              `json:"maxParticipants"`
	Participants     []Participant    `json:"participants"`
	ParticipantCount int              `json:"participantCount"`
	EntryFee         *float64         `json:"entryFee,omitempty"`
	PrizePool        *float64         `json:"prizePool,omitempty"`
	FinalRanking     []ranking.Entry  `json:"finalRanking,omitempty"`
	Winner           *Winner          `json:"winner,omitempty"`
	FinishedAt       string           `json:"finishedAt,omitempty"`
	Pending          bool             `json:"pending,omitempty"`
}

// Invite asks a user to join a tournament.
type Invite struct {
	ID             string       `json:"id"`
	TournamentID   string       `json:"tournamentId"`
	TournamentName string       `json:"tournamentName"`
	FromUserID     string       `json:"fromUserId"`
	FromUserName   string       `json:"fromUserName"`
	ToUserID       string       `json:"toUserId"`
	Status         InviteStatus `json:"status"`
	CreatedAt      string       `json:"createdAt"`
	RespondedAt    string       `json:"respondedAt,omitempty"`
}

// Post is an entry of the social feed. Only mirrored, never written here.
type Post struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	UserName  string  `json:"userName"`
	Content   string  `json:"content"`
	CatchID   *string `json:"catchId,omitempty"`
	PhotoURL  *string `json:"photoUrl,omitempty"`
	Likes     int     `json:"likes"`
	Comments  int     `json:"comments"`
	CreatedAt string  `json:"createdAt"`
}

// Notification is written for each participant when a tournament finishes.
type Notification struct {
	ID           string `json:"id,omitempty"`
	UserID       string `json:"userId"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	TournamentID string `json:"tournamentId,omitempty"`
	Read         bool   `json:"read"`
	CreatedAt    string `json:"createdAt"`
}

// PendingParticipation is a queued "join tournament".
type PendingParticipation struct {
	TournamentID string `json:"tournamentId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	JoinedAt     string `json:"joinedAt"`
}

// PendingInviteUpdate is a queued invite response.
type PendingInviteUpdate struct {
	InviteID     string       `json:"inviteId"`
	TournamentID string       `json:"tournamentId"`
	Status       InviteStatus `json:"status"`
	UpdatedAt    string       `json:"updatedAt"`
}

// User identifies the person acting.
type User struct {
	ID   string
	Name string
}
