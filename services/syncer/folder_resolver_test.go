package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/services/imap"
)

func TestFolderResolver_CreatesOnFirstUse(t *testing.T) {
	store := newMemoryStore()
	resolver := NewFolderResolver(store.repositories().FolderRepository, nil)

	folder, err := resolver.Resolve(context.Background(), testUser, "Trash")
	require.NoError(t, err)
	assert.NotEmpty(t, folder.ID)
	assert.Equal(t, "Trash", folder.Name)
	assert.Equal(t, "Trash", folder.RemotePath)

	again, err := resolver.Resolve(context.Background(), testUser, "Trash")
	require.NoError(t, err)
	assert.Equal(t, folder.ID, again.ID)
	assert.Len(t, store.folders, 1)
}

func TestFolderResolver_EmptyNameIsInbox(t *testing.T) {
	store := newMemoryStore()
	resolver := NewFolderResolver(store.repositories().FolderRepository, nil)

	folder, err := resolver.Resolve(context.Background(), testUser, "")
	require.NoError(t, err)
	assert.Equal(t, "INBOX", folder.Name)
}

func TestFolderResolver_UsesConfiguredPrimary(t *testing.T) {
	store := newMemoryStore()
	paths, err := imap.ParseFolderPaths(`{"Sent":{"primary":"[Gmail]/Sent Mail"}}`)
	require.NoError(t, err)
	resolver := NewFolderResolver(store.repositories().FolderRepository, paths)

	folder, err := resolver.Resolve(context.Background(), testUser, "Sent")
	require.NoError(t, err)
	assert.Equal(t, "[Gmail]/Sent Mail", folder.RemotePath)
}

func TestFolderResolver_PerUser(t *testing.T) {
	store := newMemoryStore()
	resolver := NewFolderResolver(store.repositories().FolderRepository, nil)

	first, err := resolver.Resolve(context.Background(), "user-a", "INBOX")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "user-b", "INBOX")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, store.folders, 2)
}

type brokenFolders struct{ *folderRepo }

func (brokenFolders) GetByName(context.Context, string, string) (*models.Folder, error) {
	return nil, errors.New("relation \"folders\" does not exist")
}

func TestFolderResolver_RepositoryError(t *testing.T) {
	resolver := NewFolderResolver(brokenFolders{}, nil)

	folder, err := resolver.Resolve(context.Background(), testUser, "INBOX")
	assert.Nil(t, folder)
	assert.ErrorIs(t, err, mailsyncerrors.ErrFolderNotResolved)
}
