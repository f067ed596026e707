package tokenmanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopee-ingest/internal/ingesterr"
	"shopee-ingest/internal/models"
)

type fakeRefresher struct {
	calls       int32
	inflight    int32
	maxInflight int32
	delay       time.Duration
	result      RefreshResult
	err         error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string, shopID int64) (RefreshResult, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		m := atomic.LoadInt32(&f.maxInflight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInflight, m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.result, f.err
}

type fakeShopUpdater struct {
	mu    sync.Mutex
	saved map[string]RefreshResult
}

func newFakeShopUpdater() *fakeShopUpdater {
	return &fakeShopUpdater{saved: make(map[string]RefreshResult)}
}

func (f *fakeShopUpdater) UpdateTokens(ctx context.Context, shopKey, accessToken, refreshToken string, expireAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[shopKey] = RefreshResult{AccessToken: accessToken, RefreshToken: refreshToken}
	return nil
}

func freshShop() models.Shop {
	return models.Shop{
		Key:               "shop-1",
		MarketplaceShopID: 123,
		AccessToken:       "still-valid",
		RefreshToken:      "refresh-1",
		ExpireAt:          time.Now().Add(time.Hour),
	}
}

func TestEnsureSkipsRefreshWhenTokenIsFresh(t *testing.T) {
	refresher := &fakeRefresher{}
	shops := newFakeShopUpdater()
	m := New(refresher, shops)

	got, err := m.Ensure(context.Background(), freshShop())
	require.NoError(t, err)
	assert.Equal(t, "still-valid", got.AccessToken)
	assert.EqualValues(t, 0, refresher.calls)
}

func TestEnsureRefreshesWhenExpiringSoon(t *testing.T) {
	refresher := &fakeRefresher{result: RefreshResult{AccessToken: "new-token", RefreshToken: "new-refresh", ExpireIn: 3600}}
	shops := newFakeShopUpdater()
	m := New(refresher, shops)

	shop := freshShop()
	shop.ExpireAt = time.Now().Add(time.Second)

	got, err := m.Ensure(context.Background(), shop)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.AccessToken)
	assert.Equal(t, "new-refresh", got.RefreshToken)
	assert.EqualValues(t, 1, refresher.calls)
	assert.Contains(t, shops.saved, "shop-1")
}

func TestEnsureFailsFastWithoutRefreshToken(t *testing.T) {
	refresher := &fakeRefresher{}
	shops := newFakeShopUpdater()
	m := New(refresher, shops)

	shop := freshShop()
	shop.ExpireAt = time.Now().Add(-time.Minute)
	shop.RefreshToken = ""

	_, err := m.Ensure(context.Background(), shop)
	var tokenErr *ingesterr.TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.EqualValues(t, 0, refresher.calls)
}

func TestEnsureWrapsRefresherErrorAsTokenError(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("upstream rejected refresh")}
	shops := newFakeShopUpdater()
	m := New(refresher, shops)

	shop := freshShop()
	shop.ExpireAt = time.Now().Add(-time.Minute)

	_, err := m.Ensure(context.Background(), shop)
	var tokenErr *ingesterr.TokenError
	require.ErrorAs(t, err, &tokenErr)
}

func TestEnsureSerializesConcurrentRefreshesPerShop(t *testing.T) {
	refresher := &fakeRefresher{
		delay:  50 * time.Millisecond,
		result: RefreshResult{AccessToken: "new-token", RefreshToken: "new-refresh", ExpireIn: 3600},
	}
	shops := newFakeShopUpdater()
	m := New(refresher, shops)

	shop := freshShop()
	shop.ExpireAt = time.Now().Add(-time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Ensure(context.Background(), shop)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Each goroutine holds its own shop value, so every one re-checks
	// expiry and refreshes; what matters here is that refreshes for the
	// same shop key never overlap.
	assert.True(t, refresher.calls >= 1)
	assert.EqualValues(t, 1, refresher.maxInflight, "refreshes for one shop key must run one at a time")
}
