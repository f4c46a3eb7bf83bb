package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeConn struct {
	subj string
	data []byte
	err  error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subj, f.data = subj, data
	return f.err
}

func TestNATS_PublishEncodesJSON(t *testing.T) {
	fc := &fakeConn{}
	p := &NATS{nc: fc, log: zaptest.NewLogger(t)}
	id := uuid.Must(uuid.NewV4())

	require.NoError(t, p.Publish(context.Background(), SubjectListingDeleted, ListingDeleted{ID: id}))
	require.Equal(t, "listing.deleted", fc.subj)

	var got ListingDeleted
	require.NoError(t, json.Unmarshal(fc.data, &got))
	require.Equal(t, id, got.ID)
}

func TestNATS_PublishErrors(t *testing.T) {
	p := &NATS{nc: &fakeConn{err: errors.New("nats: connection closed")}, log: zaptest.NewLogger(t)}
	require.Error(t, p.Publish(context.Background(), SubjectChatInteraction, ChatInteraction{Input: "hi"}))

	p = &NATS{nc: &fakeConn{}, log: zaptest.NewLogger(t)}
	require.Error(t, p.Publish(context.Background(), "x", make(chan int)))
}

func TestNATS_CloseWithoutConn(t *testing.T) {
	p := &NATS{nc: &fakeConn{}, log: zaptest.NewLogger(t)}
	p.Close()
}

func TestNop(t *testing.T) {
	require.NoError(t, Nop{}.Publish(context.Background(), "any", nil))
}
