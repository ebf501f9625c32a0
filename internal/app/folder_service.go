package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"teamkb/internal/model"
	"teamkb/internal/storage"
	"teamkb/internal/vectorindex"
)

type FolderService struct {
	folders  FolderRepo
	docs     DocumentRepo
	versions VersionRepo
	kbs      KnowledgeBaseRepo
	blobs    storage.ObjectStore
	index    vectorindex.Index
	logger   *zap.Logger
}

func NewFolderService(
	folders FolderRepo,
	docs DocumentRepo,
	versions VersionRepo,
	kbs KnowledgeBaseRepo,
	blobs storage.ObjectStore,
	index vectorindex.Index,
	logger *zap.Logger,
) *FolderService {
	return &FolderService{
		folders:  folders,
		docs:     docs,
		versions: versions,
		kbs:      kbs,
		blobs:    blobs,
		index:    index,
		logger:   logger,
	}
}

type CreateFolderInput struct {
	TeamID         uint
	Name           string
	ParentFolderID *uint
	ProjectID      *uint
}

func (s *FolderService) CreateFolder(input CreateFolderInput) (*model.Folder, error) {
	if input.TeamID == 0 {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	kb, err := s.kbs.GetOrCreateByTeamID(input.TeamID, "Knowledge Base")
	if err != nil {
		return nil, err
	}

	folder := &model.Folder{
		TeamID:          input.TeamID,
		KnowledgeBaseID: kb.ID,
		Name:            name,
		Type:            model.FolderTypeGeneral,
		ProjectID:       input.ProjectID,
	}
	if input.ParentFolderID != nil {
		if err := s.validateParent(input.TeamID, kb.ID, 0, *input.ParentFolderID); err != nil {
			return nil, err
		}
		folder.ParentFolderID = input.ParentFolderID
	}

	if err := s.folders.Create(folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *FolderService) ListFolders(teamID uint) ([]model.Folder, error) {
	if teamID == 0 {
		return nil, ErrInvalidInput
	}
	return s.folders.ListByTeamID(teamID)
}

// MoveFolder re-parents a folder, re-checking the tree invariants.
func (s *FolderService) MoveFolder(teamID, folderID uint, newParentID *uint) (*model.Folder, error) {
	folder, err := s.folders.GetByIDAndTeamID(folderID, teamID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, ErrNotFound
	}
	if newParentID != nil {
		if err := s.validateParent(teamID, folder.KnowledgeBaseID, folder.ID, *newParentID); err != nil {
			return nil, err
		}
	}
	folder.ParentFolderID = newParentID
	if err := s.folders.Save(folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// validateParent enforces that the parent exists, shares the knowledge base,
// and that linking to it introduces no cycle anywhere up the ancestor chain.
func (s *FolderService) validateParent(teamID, kbID, folderID, parentID uint) error {
	if folderID != 0 && parentID == folderID {
		return ErrFolderCycle
	}
	seen := map[uint]bool{}
	currentID := parentID
	for currentID != 0 {
		if seen[currentID] {
			return ErrFolderCycle
		}
		seen[currentID] = true

		parent, err := s.folders.GetByIDAndTeamID(currentID, teamID)
		if err != nil {
			return err
		}
		if parent == nil {
			return ErrNotFound
		}
		if parent.KnowledgeBaseID != kbID {
			return ErrFolderCrossKB
		}
		if folderID != 0 && parent.ID == folderID {
			return ErrFolderCycle
		}
		if parent.ParentFolderID == nil {
			break
		}
		currentID = *parent.ParentFolderID
	}
	return nil
}

// DeleteFolder removes the folder subtree: documents, their version history,
// their blobs, and their vectors.
func (s *FolderService) DeleteFolder(ctx context.Context, teamID, folderID uint) error {
	folder, err := s.folders.GetByIDAndTeamID(folderID, teamID)
	if err != nil {
		return err
	}
	if folder == nil {
		return ErrNotFound
	}
	return s.deleteSubtree(ctx, teamID, folder)
}

func (s *FolderService) deleteSubtree(ctx context.Context, teamID uint, folder *model.Folder) error {
	children, err := s.folders.ListChildren(folder.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := s.deleteSubtree(ctx, teamID, &children[i]); err != nil {
			return err
		}
	}

	docs, err := s.docs.ListByFolderID(folder.ID)
	if err != nil {
		return err
	}
	namespace := vectorindex.Namespace(teamID)
	for _, doc := range docs {
		keys := []string{doc.StorageKey}
		if versions, err := s.versions.ListByDocumentID(doc.ID); err == nil {
			for _, v := range versions {
				keys = append(keys, v.StorageKey)
			}
		}
		for _, key := range keys {
			if key == "" {
				continue
			}
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Warn("delete blob failed",
					zap.String("key", key), zap.Error(err))
			}
		}
		if err := s.index.DeleteDocument(ctx, namespace, doc.ID); err != nil {
			s.logger.Warn("delete vectors failed",
				zap.Uint("document_id", doc.ID), zap.Error(err))
		}
	}
	if err := s.docs.DeleteByFolderID(folder.ID); err != nil {
		return err
	}
	return s.folders.Delete(folder.ID)
}
