package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catchDoc struct {
	LocalID string  `json:"localId"`
	UserID  string  `json:"userId"`
	Weight  float64 `json:"weight"`
}

func TestKindOfAndDeferrable(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       Kind
		deferrable bool
	}{
		{"network", NewError(KindNetworkUnavailable, OpAddDocument, CollCatches, nil), KindNetworkUnavailable, true},
		{"permission", NewError(KindPermissionDenied, OpSubscribe, CollInvites, nil), KindPermissionDenied, true},
		{"precondition", NewError(KindFailedPrecondition, OpQueryDocuments, CollCatches, nil), KindFailedPrecondition, true},
		{"not found", NewError(KindNotFound, OpGetDocument, CollTournaments, nil), KindNotFound, false},
		{"validation", NewError(KindValidation, OpBatchWrite, "", nil), KindValidation, false},
		{"wrapped", fmt.Errorf("join: %w", NewError(KindNetworkUnavailable, OpUpdateDocument, CollTournaments, nil)), KindNetworkUnavailable, true},
		{"plain", errors.New("boom"), KindUnknown, false},
		{"nil", nil, KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.deferrable, Deferrable(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(KindPermissionDenied, OpSubscribe, CollInvites, errors.New("missing index"))
	assert.Equal(t, "remote Subscribe tournament_invites (permission_denied): missing index", err.Error())
	assert.ErrorContains(t, err, "missing index")
}

func TestEncodeDecode(t *testing.T) {
	doc, err := Encode(catchDoc{LocalID: "tmp-1", UserID: "u", Weight: 2})
	require.NoError(t, err)
	assert.Equal(t, Document{"localId": "tmp-1", "userId": "u", "weight": 2.0}, doc)

	doc[FieldID] = "remote-1"
	assert.Equal(t, "remote-1", doc.ID())

	var back catchDoc
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, "tmp-1", back.LocalID)

	all := DecodeAll[catchDoc]([]Document{doc, {"weight": "heavy"}})
	require.Len(t, all, 1, "documents that do not fit are skipped")
}

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.AddDocument(ctx, CollCatches, Document{"userId": "u", "weight": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := m.GetDocument(ctx, CollCatches, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID())
	assert.Equal(t, 3.0, doc["weight"])

	require.NoError(t, m.UpdateDocument(ctx, CollCatches, id, Document{"weight": 4.5, "species": "Pacu"}))
	doc, err = m.GetDocument(ctx, CollCatches, id)
	require.NoError(t, err)
	assert.Equal(t, 4.5, doc["weight"])
	assert.Equal(t, "u", doc["userId"], "update merges instead of replacing")

	err = m.UpdateDocument(ctx, CollCatches, "missing", Document{"weight": 1})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = m.GetDocument(ctx, CollCatches, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestMemory_ReturnedDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.AddDocument(ctx, CollCatches, Document{"weight": 1})
	require.NoError(t, err)

	doc, err := m.GetDocument(ctx, CollCatches, id)
	require.NoError(t, err)
	doc["weight"] = 99.0

	again, err := m.GetDocument(ctx, CollCatches, id)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again["weight"])
}

func TestMemory_QueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, c := range []Document{
		{"userId": "a", "weight": 2, "status": "open"},
		{"userId": "b", "weight": 9, "status": "finished"},
		{"userId": "a", "weight": 5, "status": "open"},
		{"userId": "c", "weight": 1, "status": "cancelled"},
	} {
		_, err := m.AddDocument(ctx, CollTournaments, c)
		require.NoError(t, err)
	}

	docs, err := m.QueryDocuments(ctx, CollTournaments, []Filter{Where("userId", "a")}, &Order{Field: "weight", Desc: true})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 5.0, docs[0]["weight"])
	assert.Equal(t, 2.0, docs[1]["weight"])

	docs, err = m.QueryDocuments(ctx, CollTournaments, []Filter{{Field: "status", Op: OpIn, Value: []string{"finished", "cancelled"}}}, &Order{Field: "weight"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0]["userId"])

	docs, err = m.QueryDocuments(ctx, CollTournaments, []Filter{{Field: "status", Op: OpNotEqual, Value: "open"}}, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = m.QueryDocuments(ctx, CollPosts, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestMemory_SubscribeDeliversInitialAndChanges(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.AddDocument(ctx, CollInvites, Document{"toUserId": "u", "status": "pending"})
	require.NoError(t, err)

	var emissions [][]Document
	unsubscribe, err := m.Subscribe(ctx, CollInvites,
		[]Filter{Where("toUserId", "u"), Where("status", "pending")}, nil,
		func(docs []Document) { emissions = append(emissions, docs) },
		func(error) { t.Fatal("unexpected subscription error") })
	require.NoError(t, err)
	require.Len(t, emissions, 1)
	assert.Len(t, emissions[0], 1)

	_, err = m.AddDocument(ctx, CollInvites, Document{"toUserId": "u", "status": "pending"})
	require.NoError(t, err)
	require.Len(t, emissions, 2)
	assert.Len(t, emissions[1], 2)

	unsubscribe()
	unsubscribe()
	_, err = m.AddDocument(ctx, CollInvites, Document{"toUserId": "u", "status": "pending"})
	require.NoError(t, err)
	assert.Len(t, emissions, 2, "no emissions after unsubscribe")
	assert.Equal(t, 0, m.Subscribers(CollInvites))
}

func TestMemory_BreakSubscriptions(t *testing.T) {
	m := NewMemory()
	var got error
	_, err := m.Subscribe(context.Background(), CollInvites, nil, nil, func([]Document) {}, func(err error) { got = err })
	require.NoError(t, err)

	m.BreakSubscriptions(CollInvites, NewError(KindPermissionDenied, OpSubscribe, CollInvites, nil))
	assert.Equal(t, KindPermissionDenied, KindOf(got))
	assert.Equal(t, 0, m.Subscribers(CollInvites))
}

func TestMemory_Faults(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.SetOffline(true)
	_, err := m.AddDocument(ctx, CollCatches, Document{})
	assert.True(t, Deferrable(err))
	_, err = m.Subscribe(ctx, CollCatches, nil, nil, func([]Document) {}, func(error) {})
	assert.Equal(t, KindNetworkUnavailable, KindOf(err))

	m.SetOffline(false)
	_, err = m.AddDocument(ctx, CollCatches, Document{})
	require.NoError(t, err)

	m.SetFault(OpQueryDocuments, errors.New("boom"))
	_, err = m.QueryDocuments(ctx, CollCatches, nil, nil)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Equal(t, 2, m.Calls(OpAddDocument))
}

func TestMemory_BatchWriteIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.AddDocument(ctx, CollTournaments, Document{"name": "Copa"})
	require.NoError(t, err)

	err = m.BatchWrite(ctx, []Write{
		{Kind: WriteAdd, Collection: CollCatches, Data: Document{"weight": 1}},
		{Kind: WriteUpdate, Collection: CollTournaments, ID: "missing", Data: Document{"status": "finished"}},
	})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 0, m.Count(CollCatches))

	require.NoError(t, m.BatchWrite(ctx, []Write{
		{Kind: WriteAdd, Collection: CollCatches, Data: Document{"weight": 1}},
		{Kind: WriteUpdate, Collection: CollTournaments, ID: id, Data: Document{"status": "finished"}},
	}))
	assert.Equal(t, 1, m.Count(CollCatches))
	doc, err := m.GetDocument(ctx, CollTournaments, id)
	require.NoError(t, err)
	assert.Equal(t, "finished", doc["status"])

	tooMany := make([]Write, MaxBatchSize+1)
	assert.Equal(t, KindValidation, KindOf(m.BatchWrite(ctx, tooMany)))
}
