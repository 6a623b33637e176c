package pubsub

import (
	"cloud.google.com/go/pubsub"
	"github.com/mauv0809/catch-league/internal/model"
)

type client struct {
	client *pubsub.Client
}

type noop struct{}

// EventType represents the type of event/message sent via pubsub. It is
// also the topic name.
type EventType string

const (
	EventCatchRegistered    EventType = "catch-registered"
	EventTournamentFinished EventType = "tournament-finished"
)

// CatchRegistered is published after a catch is written or queued.
type CatchRegistered struct {
	CatchID      string  `msgpack:"catchId"`
	UserID       string  `msgpack:"userId"`
	UserName     string  `msgpack:"userName"`
	Species      string  `msgpack:"species"`
	Weight       float64 `msgpack:"weight"`
	TournamentID string  `msgpack:"tournamentId,omitempty"`
	Queued       bool    `msgpack:"queued"`
}

// TournamentFinished is published once a finished tournament is persisted.
type TournamentFinished struct {
	TournamentID string         `msgpack:"tournamentId"`
	Name         string         `msgpack:"name"`
	Participants int            `msgpack:"participants"`
	FinishedAt   string         `msgpack:"finishedAt"`
	Winner       *model.Winner  `msgpack:"winner,omitempty"`
	Ranking      []RankingEntry `msgpack:"ranking"`
}

// RankingEntry is the slice of a ranking entry carried on the wire.
type RankingEntry struct {
	Position     int     `msgpack:"position"`
	UserID       string  `msgpack:"userId"`
	UserName     string  `msgpack:"userName"`
	TotalWeight  float64 `msgpack:"totalWeight"`
	TotalCatches int     `msgpack:"totalCatches"`
	Score        int     `msgpack:"score"`
}

// PushEnvelope is the body Pub/Sub posts to a push subscription endpoint.
type PushEnvelope struct {
	Subscription string `json:"subscription"`
	Message      struct {
		ID   string `json:"messageId"`
		Data string `json:"data"`
	} `json:"message"`
}
