package videos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

type mockFetcher struct {
	calls   int
	getFunc func(ctx context.Context, id string) (*Video, error)
}

func (m *mockFetcher) GetVideoURL(ctx context.Context, id string) (*Video, error) {
	m.calls++
	return m.getFunc(ctx, id)
}

func newTestService(t *testing.T, f *mockFetcher) *Service {
	t.Helper()
	svc, err := NewService(f, 8, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestLookupCachesFoundVideos(t *testing.T) {
	f := &mockFetcher{getFunc: func(_ context.Context, id string) (*Video, error) {
		return &Video{VideoURL: "https://cdn.example/" + id + ".mp4", AdaNo: "ADA-1"}, nil
	}}
	svc := newTestService(t, f)

	first, err := svc.Lookup(context.Background(), " 9876543210 ")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "https://cdn.example/9876543210.mp4", first.VideoURL)

	second, err := svc.Lookup(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, f.calls)
}

func TestLookupCacheExpires(t *testing.T) {
	f := &mockFetcher{getFunc: func(context.Context, string) (*Video, error) {
		return &Video{VideoURL: "https://cdn.example/v.mp4"}, nil
	}}
	svc := newTestService(t, f)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Lookup(context.Background(), "ADA123")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	v, err := svc.Lookup(context.Background(), "ADA123")
	require.NoError(t, err)
	assert.False(t, v.Cached)
	assert.Equal(t, 2, f.calls)
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		fetch   func(context.Context, string) (*Video, error)
		wantErr error
	}{
		{name: "blank identifier", id: "  ", wantErr: ErrInvalidIdentifier},
		{name: "garbage identifier", id: "../etc/passwd", wantErr: ErrInvalidIdentifier},
		{name: "empty url", id: "9876543210", fetch: func(context.Context, string) (*Video, error) {
			return &Video{}, nil
		}, wantErr: ErrVideoNotFound},
		{name: "backend 404", id: "9876543210", fetch: func(ctx context.Context, _ string) (*Video, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeNotFound, "missing", nil, "")
		}, wantErr: ErrVideoNotFound},
		{name: "backend down", id: "ADA9", fetch: func(ctx context.Context, _ string) (*Video, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "502", nil, "")
		}, wantErr: ErrUnavailable},
		{name: "cancelled", id: "ADA9", fetch: func(context.Context, string) (*Video, error) {
			return nil, context.Canceled
		}, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &mockFetcher{getFunc: tt.fetch}
			svc := newTestService(t, f)
			_, err := svc.Lookup(context.Background(), tt.id)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLookupDoesNotCacheMisses(t *testing.T) {
	f := &mockFetcher{getFunc: func(context.Context, string) (*Video, error) {
		return &Video{}, nil
	}}
	svc := newTestService(t, f)

	_, _ = svc.Lookup(context.Background(), "ADA1")
	_, _ = svc.Lookup(context.Background(), "ADA1")
	assert.Equal(t, 2, f.calls)
}

func TestForget(t *testing.T) {
	f := &mockFetcher{getFunc: func(context.Context, string) (*Video, error) {
		return &Video{VideoURL: "u"}, nil
	}}
	svc := newTestService(t, f)

	_, _ = svc.Lookup(context.Background(), "ADA1")
	svc.Forget("ADA1")
	_, _ = svc.Lookup(context.Background(), "ADA1")
	assert.Equal(t, 2, f.calls)
}

func TestIsMobileNumber(t *testing.T) {
	assert.True(t, IsMobileNumber("0123456789"))
	assert.False(t, IsMobileNumber("012345678"))
	assert.False(t, IsMobileNumber("ADA0123456"))
}
