package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"teamkb/internal/extract"
	"teamkb/internal/model"
	"teamkb/internal/platform/rabbitmq"
	"teamkb/internal/storage"
)

type DocumentService struct {
	docs      DocumentRepo
	folders   FolderRepo
	versions  VersionRepo
	favorites FavoriteRepo
	blobs     storage.ObjectStore
	notifier  IngestNotifier
	logger    *zap.Logger
	urlTTL    time.Duration
}

func NewDocumentService(
	docs DocumentRepo,
	folders FolderRepo,
	versions VersionRepo,
	favorites FavoriteRepo,
	blobs storage.ObjectStore,
	notifier IngestNotifier,
	logger *zap.Logger,
	urlTTL time.Duration,
) *DocumentService {
	return &DocumentService{
		docs:      docs,
		folders:   folders,
		versions:  versions,
		favorites: favorites,
		blobs:     blobs,
		notifier:  notifier,
		logger:    logger,
		urlTTL:    urlTTL,
	}
}

type UploadInput struct {
	TeamID      uint
	FolderID    uint
	Title       string
	Description string
	Tags        []string
	Filename    string
	MimeType    string
	Data        []byte
	UploadedBy  uint
}

// Upload stores the blob and metadata, then fires the ingest trigger. The
// upload is complete once metadata and blob are persisted; indexing happens
// out-of-band.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.TeamID == 0 || input.FolderID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSpace(input.Filename)
	}
	if title == "" {
		return nil, ErrInvalidInput
	}

	folder, err := s.folders.GetByIDAndTeamID(input.FolderID, input.TeamID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, ErrNotFound
	}

	doc := &model.Document{
		TeamID:          input.TeamID,
		KnowledgeBaseID: folder.KnowledgeBaseID,
		FolderID:        folder.ID,
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		FileType:        extract.DetectFileType(input.Filename, input.MimeType),
		MimeType:        input.MimeType,
		FileSize:        int64(len(input.Data)),
		CurrentVersion:  1,
		Source:          model.SourceUpload,
	}
	doc.SetTagList(input.Tags)
	doc.SetAttrs(model.DocumentAttributes{UploadedBy: input.UploadedBy})
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}

	key := storage.BlobKey(input.TeamID, doc.ID, doc.CurrentVersion, input.Filename)
	uploaded, err := s.blobs.Upload(ctx, key, input.Data, input.MimeType)
	if err != nil {
		// Remove the fresh row so a failed upload leaves no orphan that
		// surfaces in listings and fails every reprocess pass.
		if delErr := s.docs.Delete(doc.ID); delErr != nil {
			s.logger.Warn("remove document after failed upload",
				zap.Uint("document_id", doc.ID), zap.Error(delErr))
		}
		return nil, err
	}
	doc.StorageKey = uploaded.Key
	doc.FileURL = uploaded.URL
	if err := s.docs.Save(doc); err != nil {
		return nil, err
	}

	s.notifyIngest(ctx, doc)
	return doc, nil
}

// notifyIngest is fire-and-forget: a publish failure leaves the document
// UNINDEXED, which the batch reprocessor picks up later.
func (s *DocumentService) notifyIngest(ctx context.Context, doc *model.Document) {
	event := rabbitmq.IngestEvent{DocumentID: doc.ID, TeamID: doc.TeamID}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ingest event failed",
			zap.Uint("document_id", doc.ID), zap.Error(err))
	}
}

func (s *DocumentService) Get(teamID, documentID uint) (*model.Document, error) {
	doc, err := s.docs.GetByIDAndTeamID(documentID, teamID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(teamID uint, folderID *uint) ([]model.Document, error) {
	if teamID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByTeamID(teamID, folderID)
}

// Archive soft-deletes; the blob and history stay until folder deletion.
func (s *DocumentService) Archive(teamID, documentID uint) error {
	doc, err := s.docs.GetByIDAndTeamID(documentID, teamID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFound
	}
	return s.docs.Archive(documentID, teamID)
}

func (s *DocumentService) DownloadURL(teamID, documentID uint) (string, error) {
	doc, err := s.Get(teamID, documentID)
	if err != nil {
		return "", err
	}
	if doc.StorageKey == "" {
		return "", ErrNotFound
	}
	return s.blobs.SignedURL(doc.StorageKey, s.urlTTL)
}

func (s *DocumentService) AddFavorite(teamID, userID, documentID uint) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docs.GetByIDAndTeamID(documentID, teamID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFound
	}
	exists, err := s.favorites.Exists(userID, documentID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.favorites.Create(&model.Favorite{
		UserID:     userID,
		DocumentID: documentID,
		TeamID:     teamID,
	})
}

func (s *DocumentService) RemoveFavorite(teamID, userID, documentID uint) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	return s.favorites.Delete(userID, documentID)
}

func (s *DocumentService) ListFavorites(teamID, userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	ids, err := s.favorites.ListDocumentIDsByUser(userID, teamID)
	if err != nil {
		return nil, err
	}
	return s.docs.ListByIDsAndTeamID(ids, teamID)
}
