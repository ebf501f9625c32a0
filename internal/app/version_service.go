package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"teamkb/internal/model"
	"teamkb/internal/platform/rabbitmq"
	"teamkb/internal/storage"
)

// VersionService snapshots a document's current state before a new upload
// overwrites it.
type VersionService struct {
	docs     DocumentRepo
	versions VersionRepo
	blobs    storage.ObjectStore
	notifier IngestNotifier
	logger   *zap.Logger
}

func NewVersionService(
	docs DocumentRepo,
	versions VersionRepo,
	blobs storage.ObjectStore,
	notifier IngestNotifier,
	logger *zap.Logger,
) *VersionService {
	return &VersionService{
		docs:     docs,
		versions: versions,
		blobs:    blobs,
		notifier: notifier,
		logger:   logger,
	}
}

type UploadVersionInput struct {
	TeamID     uint
	DocumentID uint
	Filename   string
	MimeType   string
	Data       []byte
	ChangeNote string
}

type UploadVersionResult struct {
	Document      *model.Document `json:"document"`
	VersionNumber int             `json:"version_number"` // the snapshot's number
}

// UploadNewVersion uploads the new blob, then writes the history snapshot,
// then the mutated document row, strictly in that order. The snapshot must
// land before the document is overwritten, or history is lost; and the blob
// upload must come first, so a failed upload leaves neither a snapshot row
// nor a changed document and a retry starts clean.
func (s *VersionService) UploadNewVersion(ctx context.Context, input UploadVersionInput) (*UploadVersionResult, error) {
	if input.TeamID == 0 || input.DocumentID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}

	doc, err := s.docs.GetByIDAndTeamID(input.DocumentID, input.TeamID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = doc.Title
	}
	// A fresh version-suffixed key every time; reusing the old key would
	// serve stale cached content under the old URL.
	newVersion := doc.CurrentVersion + 1
	key := storage.BlobKey(doc.TeamID, doc.ID, newVersion, filename)
	uploaded, err := s.blobs.Upload(ctx, key, input.Data, input.MimeType)
	if err != nil {
		return nil, err
	}

	snapshot := &model.DocumentVersion{
		DocumentID:    doc.ID,
		TeamID:        doc.TeamID,
		VersionNumber: doc.CurrentVersion,
		Content:       doc.Content,
		StorageKey:    doc.StorageKey,
		FileSize:      doc.FileSize,
		VectorPointer: doc.VectorPointer,
		ChangeNote:    strings.TrimSpace(input.ChangeNote),
	}
	if err := s.versions.Create(snapshot); err != nil {
		return nil, err
	}

	doc.StorageKey = uploaded.Key
	doc.FileURL = uploaded.URL
	doc.FileSize = int64(len(input.Data))
	if input.MimeType != "" {
		doc.MimeType = input.MimeType
	}
	doc.CurrentVersion = newVersion
	doc.ClearIndex()
	if err := s.docs.Save(doc); err != nil {
		return nil, err
	}

	event := rabbitmq.IngestEvent{DocumentID: doc.ID, TeamID: doc.TeamID}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ingest event failed",
			zap.Uint("document_id", doc.ID), zap.Error(err))
	}

	return &UploadVersionResult{
		Document:      doc,
		VersionNumber: snapshot.VersionNumber,
	}, nil
}

func (s *VersionService) ListVersions(teamID, documentID uint) ([]model.DocumentVersion, error) {
	doc, err := s.docs.GetByIDAndTeamID(documentID, teamID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return s.versions.ListByDocumentID(documentID)
}
