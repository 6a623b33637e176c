package remote

import "github.com/google/uuid"

// Collections.
const (
	CollTournaments   = "tournaments"
	CollCatches       = "catches"
	CollPosts         = "posts"
	CollInvites       = "tournament_invites"
	CollNotifications = "notifications"
)

// MaxBatchSize is the number of writes sent in one BatchWrite call.
const MaxBatchSize = 499

// FieldID is the key under which every returned document carries its id.
const FieldID = "id"

// Document is a schemaless record as stored remotely.
type Document map[string]any

// ID returns the document id or "".
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// FilterOp is a comparison supported by QueryDocuments and Subscribe.
type FilterOp string

const (
	OpEqual    FilterOp = "=="
	OpNotEqual FilterOp = "!="
	OpIn       FilterOp = "in"
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// Order sorts query results by a single field.
type Order struct {
	Field string
	Desc  bool
}

// WriteKind distinguishes creates from partial updates in a batch.
type WriteKind string

const (
	WriteAdd    WriteKind = "add"
	WriteUpdate WriteKind = "update"
)

// Write is one operation of a batch. Adds with an empty ID get a generated
// one.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       Document
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// NewID returns a fresh document id, for callers that need to know the id
// of a batched add up front.
func NewID() string {
	return uuid.NewString()
}
