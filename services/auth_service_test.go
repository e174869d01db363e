package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gramforge/gramcast/domain"
	"github.com/gramforge/gramcast/log"
)

func testRecord() *domain.SessionRecord {
	return &domain.SessionRecord{
		DC:         2,
		ServerAddr: "149.154.167.50",
		Port:       443,
		AuthKey:    "deadbeef",
	}
}

func TestAuthenticate_RejectsNonSessionUpload(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	svc := NewAuthService(store, conn, rotator, log.Nop())

	_, err := svc.Authenticate(context.Background(), "notes.txt", []byte("data"))

	require.ErrorIs(t, err, domain.ErrInvalidArtifact)
	conn.AssertNotCalled(t, "FromSessionFile", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthenticate_UnauthorizedSession(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	client := new(MockClient)

	conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Authorized", mock.Anything).Return(false, nil)
	client.On("Close").Return(nil)

	svc := NewAuthService(store, conn, rotator, log.Nop())
	_, err := svc.Authenticate(context.Background(), "acc.session", []byte("data"))

	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	client.AssertCalled(t, "Close")
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rotator.AssertNotCalled(t, "MaybeRotate", mock.Anything)
}

func TestAuthenticate_AuthorizationCheckFault(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	client := new(MockClient)

	conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Authorized", mock.Anything).Return(false, errors.New("connection reset"))
	client.On("Close").Return(nil)

	svc := NewAuthService(store, conn, rotator, log.Nop())
	_, err := svc.Authenticate(context.Background(), "acc.session", []byte("data"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotAuthorized)
	client.AssertCalled(t, "Close")
}

func TestAuthenticate_Success(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	client := new(MockClient)
	rec := testRecord()

	conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Authorized", mock.Anything).Return(true, nil)
	client.On("Credentials").Return(rec, nil)
	client.On("AccountStats", mock.Anything).Return(domain.AccountStats{Groups: 5}, nil)
	client.On("Close").Return(nil)
	store.On("Set", mock.Anything, mock.Anything, rec, domain.SessionTTL).Return(nil)
	rotator.On("MaybeRotate", mock.Anything).Return()

	svc := NewAuthService(store, conn, rotator, log.Nop())
	res, err := svc.Authenticate(context.Background(), "acc.session", []byte("data"))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SessionID, "user:"))
	assert.Equal(t, 5, res.Stats.Groups)
	store.AssertExpectations(t)
	rotator.AssertCalled(t, "MaybeRotate", mock.Anything)
	client.AssertCalled(t, "Close")
}

func TestAuthenticate_StatsFailureDoesNotFailLogin(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	client := new(MockClient)

	conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Authorized", mock.Anything).Return(true, nil)
	client.On("Credentials").Return(testRecord(), nil)
	client.On("AccountStats", mock.Anything).Return(domain.AccountStats{}, errors.New("FLOOD_WAIT"))
	client.On("Close").Return(nil)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	rotator.On("MaybeRotate", mock.Anything).Return()

	svc := NewAuthService(store, conn, rotator, log.Nop())
	res, err := svc.Authenticate(context.Background(), "acc.session", []byte("data"))

	require.NoError(t, err)
	assert.Equal(t, domain.AccountStats{}, res.Stats)
}

func TestAuthenticate_StoreFault(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	client := new(MockClient)

	conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Authorized", mock.Anything).Return(true, nil)
	client.On("Credentials").Return(testRecord(), nil)
	client.On("Close").Return(nil)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("backend unreachable"))

	svc := NewAuthService(store, conn, rotator, log.Nop())
	_, err := svc.Authenticate(context.Background(), "acc.session", []byte("data"))

	require.Error(t, err)
	rotator.AssertNotCalled(t, "MaybeRotate", mock.Anything)
	client.AssertCalled(t, "Close")
}

// countScratchFiles counts session scratch files currently in the temp dir.
func countScratchFiles(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "*.session"))
	require.NoError(t, err)
	return len(matches)
}

func TestAuthenticate_ScratchFileAlwaysRemoved(t *testing.T) {
	cases := map[string]func(client *MockClient, store *MockSessionStore){
		"success": func(client *MockClient, store *MockSessionStore) {
			client.On("Authorized", mock.Anything).Return(true, nil)
			client.On("Credentials").Return(testRecord(), nil)
			client.On("AccountStats", mock.Anything).Return(domain.AccountStats{}, nil)
			store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		},
		"unauthorized": func(client *MockClient, store *MockSessionStore) {
			client.On("Authorized", mock.Anything).Return(false, nil)
		},
		"store fault": func(client *MockClient, store *MockSessionStore) {
			client.On("Authorized", mock.Anything).Return(true, nil)
			client.On("Credentials").Return(testRecord(), nil)
			store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("backend unreachable"))
		},
	}

	for name, arrange := range cases {
		t.Run(name, func(t *testing.T) {
			store := new(MockSessionStore)
			conn := new(MockConnector)
			rotator := new(MockRotator)
			client := new(MockClient)

			conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
			client.On("Close").Return(nil)
			rotator.On("MaybeRotate", mock.Anything).Return()
			arrange(client, store)

			before := countScratchFiles(t)
			svc := NewAuthService(store, conn, rotator, log.Nop())
			_, _ = svc.Authenticate(context.Background(), "acc.session", []byte("data"))

			assert.Equal(t, before, countScratchFiles(t))
		})
	}
}

func TestScratchID(t *testing.T) {
	assert.Regexp(t, `^user:[0-9a-f]{16}$`, scratchID())
	assert.NotEqual(t, scratchID(), scratchID())
}

func TestAuthenticate_IssuesUniqueHandles(t *testing.T) {
	store := new(MockSessionStore)
	conn := new(MockConnector)
	rotator := new(MockRotator)
	client := new(MockClient)

	conn.On("FromSessionFile", mock.Anything, mock.Anything).Return(client, nil)
	client.On("Authorized", mock.Anything).Return(true, nil)
	client.On("Credentials").Return(testRecord(), nil)
	client.On("AccountStats", mock.Anything).Return(domain.AccountStats{}, nil)
	client.On("Close").Return(nil)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	rotator.On("MaybeRotate", mock.Anything).Return()

	svc := NewAuthService(store, conn, rotator, log.Nop())

	seen := map[string]bool{}
	for range 5 {
		res, err := svc.Authenticate(context.Background(), "acc.session", []byte("data"))
		require.NoError(t, err)
		assert.False(t, seen[res.SessionID], "handle %q issued twice", res.SessionID)
		seen[res.SessionID] = true
	}
}
