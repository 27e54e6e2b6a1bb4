package syncer

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services/imap"
)

type folderResolver struct {
	folders interfaces.FolderRepository
	paths   imap.FolderPaths
}

func NewFolderResolver(folders interfaces.FolderRepository, paths imap.FolderPaths) interfaces.FolderResolver {
	if paths == nil {
		paths = imap.DefaultFolderPaths()
	}
	return &folderResolver{folders: folders, paths: paths}
}

// Resolve returns the folder row of a user, creating it on first use.
func (r *folderResolver) Resolve(ctx context.Context, userID, canonicalName string) (*models.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FolderResolver.Resolve")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUser(span, userID)

	name := enum.ParseFolderName(canonicalName).String()
	tracing.TagFolder(span, name)

	folder, err := r.folders.GetByName(ctx, userID, name)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("%w: %v", mailsyncerrors.ErrFolderNotResolved, err)
	}
	if folder != nil {
		return folder, nil
	}

	path := r.paths.Lookup(name)
	folder = &models.Folder{
		UserID:      userID,
		Name:        name,
		DisplayName: path.DisplayName,
		RemotePath:  path.Primary,
	}
	if err := r.folders.Create(ctx, folder); err != nil {
		// a concurrent sync may have created it first
		existing, getErr := r.folders.GetByName(ctx, userID, name)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("%w: %v", mailsyncerrors.ErrFolderNotResolved, err)
	}

	span.SetTag("folder.created", true)
	return folder, nil
}
