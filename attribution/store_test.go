package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpsite/api/models"
)

func fixedClock() func() time.Time {
	t := time.UnixMilli(1718000000000)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore() (*Store, *MemoryStorage, *MemoryStorage) {
	local, session := NewMemoryStorage(), NewMemoryStorage()
	return NewStore(local, session, WithClock(fixedClock())), local, session
}

func TestStore_InitStoresAllSlots(t *testing.T) {
	ctx := context.Background()
	s, local, session := newTestStore()

	snap := s.Init(ctx, "https://x.com/?utm_source=google&utm_medium=cpc&utm_campaign=spring_sale")

	want := models.UTMParams{Source: "google", Medium: "cpc", Campaign: "spring_sale"}
	require.NotNil(t, snap.Current)
	assert.Equal(t, want, *snap.Current)
	assert.Equal(t, want, *snap.FirstTouch)
	assert.Equal(t, want, *snap.LastTouch)
	assert.Equal(t, want, *snap.SessionTouch)
	assert.Len(t, snap.History, 3)
	assert.NotEmpty(t, snap.SessionID)

	raw, ok, _ := local.Get(ctx, KeyFirstTouch)
	require.True(t, ok)
	var stored models.UTMParams
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, want, stored)
	assert.JSONEq(t, `{"utm_source":"google","utm_medium":"cpc","utm_campaign":"spring_sale"}`, raw)

	_, ok, _ = session.Get(ctx, KeySessionTouch)
	assert.True(t, ok)
	_, ok, _ = session.Get(ctx, KeySessionID)
	assert.True(t, ok)
}

func TestStore_InitWithoutUTMKeepsStoredSlots(t *testing.T) {
	ctx := context.Background()
	local, session := NewMemoryStorage(), NewMemoryStorage()

	first := NewStore(local, session, WithClock(fixedClock()))
	first.Init(ctx, "https://x.com/?utm_source=linkedin&utm_medium=social")

	second := NewStore(local, session, WithClock(fixedClock()))
	snap := second.Init(ctx, "https://x.com/pricing")

	require.NotNil(t, snap.Current)
	assert.Equal(t, "linkedin", snap.Current.Source, "current falls back to last touch")
	assert.Equal(t, "linkedin", snap.FirstTouch.Source)
	assert.Len(t, snap.History, 3)
}

func TestStore_FirstTouchSetOnce(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore()

	require.NoError(t, s.StoreUTM(ctx, models.UTMParams{Source: "google"}, models.TouchFirst))
	require.NoError(t, s.StoreUTM(ctx, models.UTMParams{Source: "bing"}, models.TouchFirst))

	got, ok := s.FirstTouch()
	require.True(t, ok)
	assert.Equal(t, "google", got.Source)
	assert.Len(t, s.History(), 2, "every store call appends to history")

	s.Clear(ctx)
	require.NoError(t, s.StoreUTM(ctx, models.UTMParams{Source: "bing"}, models.TouchFirst))
	got, _ = s.FirstTouch()
	assert.Equal(t, "bing", got.Source)
}

func TestStore_FirstTouchSurvivesAcrossInstances(t *testing.T) {
	ctx := context.Background()
	local, session := NewMemoryStorage(), NewMemoryStorage()

	a := NewStore(local, session)
	a.Init(ctx, "https://x.com/?utm_source=google&utm_medium=cpc")

	b := NewStore(local, session)
	b.Init(ctx, "https://x.com/?utm_source=facebook&utm_medium=social")

	first, _ := b.FirstTouch()
	last, _ := b.LastTouch()
	sess, _ := b.SessionTouch()
	assert.Equal(t, "google", first.Source)
	assert.Equal(t, "facebook", last.Source)
	assert.Equal(t, "facebook", sess.Source)
}

func TestStore_HistoryCappedFIFO(t *testing.T) {
	ctx := context.Background()
	s, local, _ := newTestStore()

	for i := 0; i < MaxHistory+1; i++ {
		require.NoError(t, s.StoreUTM(ctx, models.UTMParams{Campaign: fmt.Sprintf("c%d", i)}, models.TouchLast))
	}

	h := s.History()
	require.Len(t, h, MaxHistory)
	assert.Equal(t, "c1", h[0].UTM.Campaign, "oldest entry evicted")
	assert.Equal(t, fmt.Sprintf("c%d", MaxHistory), h[MaxHistory-1].UTM.Campaign)
	assert.Less(t, h[0].Timestamp, h[1].Timestamp)

	raw, _, _ := local.Get(ctx, KeyHistory)
	var persisted []models.UTMAttribution
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Len(t, persisted, MaxHistory)
}

func TestStore_ClearKeepsSessionID(t *testing.T) {
	ctx := context.Background()
	s, local, session := newTestStore()
	s.Init(ctx, "https://x.com/?utm_source=google")
	id := s.SessionID(ctx)

	s.Clear(ctx)

	_, ok := s.FirstTouch()
	assert.False(t, ok)
	_, ok = s.Current()
	assert.False(t, ok)
	assert.Empty(t, s.History())
	assert.Equal(t, 0, local.Len())
	assert.Equal(t, 1, session.Len(), "only the session id key remains")
	assert.Equal(t, id, s.SessionID(ctx))

	fresh := NewStore(local, session)
	fresh.Load(ctx)
	_, ok = fresh.FirstTouch()
	assert.False(t, ok)
}

func TestStore_SessionIDCachedInSessionStorage(t *testing.T) {
	ctx := context.Background()
	local, session := NewMemoryStorage(), NewMemoryStorage()

	a := NewStore(local, session)
	id := a.SessionID(ctx)
	assert.Equal(t, id, NewStore(local, session).SessionID(ctx))

	other := NewStore(local, NewMemoryStorage())
	assert.NotEqual(t, id, other.SessionID(ctx), "a new browser session gets a new id")
}

func TestStore_InvalidTouchType(t *testing.T) {
	s, _, _ := newTestStore()
	err := s.StoreUTM(context.Background(), models.UTMParams{Source: "x"}, "middle")
	assert.ErrorIs(t, err, ErrInvalidTouchType)
	assert.Empty(t, s.History())
}

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}
func (failingStorage) Set(context.Context, string, string) error { return errors.New("quota exceeded") }
func (failingStorage) Remove(context.Context, string) error      { return errors.New("storage unavailable") }

func TestStore_StorageFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingStorage{}, failingStorage{})

	snap := s.Init(ctx, "https://x.com/?utm_source=google")
	require.NotNil(t, snap.LastTouch)
	assert.Equal(t, "google", snap.LastTouch.Source, "in-memory state still updated")
	assert.NotEmpty(t, s.SessionID(ctx))

	s.Clear(ctx)
	_, ok := s.LastTouch()
	assert.False(t, ok)
}

func TestStore_CorruptSlotsTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	local, session := NewMemoryStorage(), NewMemoryStorage()
	require.NoError(t, local.Set(ctx, KeyFirstTouch, "{not json"))
	require.NoError(t, local.Set(ctx, KeyHistory, "[1,2"))

	s := NewStore(local, session)
	s.Load(ctx)
	_, ok := s.FirstTouch()
	assert.False(t, ok)
	assert.Empty(t, s.History())
}
