package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"teamkb/internal/model"
	"teamkb/internal/platform/rabbitmq"
	"teamkb/internal/storage"
)

// TranscriptService files finished meeting transcripts into a per-project
// transcripts folder, created lazily on first save.
type TranscriptService struct {
	docs     DocumentRepo
	folders  FolderRepo
	kbs      KnowledgeBaseRepo
	settings ProjectSettingsRepo
	blobs    storage.ObjectStore
	notifier IngestNotifier
	logger   *zap.Logger
}

func NewTranscriptService(
	docs DocumentRepo,
	folders FolderRepo,
	kbs KnowledgeBaseRepo,
	settings ProjectSettingsRepo,
	blobs storage.ObjectStore,
	notifier IngestNotifier,
	logger *zap.Logger,
) *TranscriptService {
	return &TranscriptService{
		docs:     docs,
		folders:  folders,
		kbs:      kbs,
		settings: settings,
		blobs:    blobs,
		notifier: notifier,
		logger:   logger,
	}
}

type SaveTranscriptInput struct {
	TeamID            uint
	ProjectID         uint
	Title             string
	Text              string
	SourceReferenceID string
}

// SaveTranscript stores the transcript as a text document with inline content
// already extracted, so ingestion skips the download-and-extract step.
func (s *TranscriptService) SaveTranscript(ctx context.Context, input SaveTranscriptInput) (*model.Document, error) {
	if input.TeamID == 0 || input.ProjectID == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrInvalidInput
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrInvalidInput
	}

	settings, err := s.projectSettings(input.TeamID, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if !settings.AutoSaveTranscripts {
		return nil, ErrAutoSaveDisabled
	}

	folder, err := s.transcriptFolder(input.TeamID, input.ProjectID, settings)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		TeamID:            input.TeamID,
		KnowledgeBaseID:   folder.KnowledgeBaseID,
		FolderID:          folder.ID,
		Title:             title,
		FileType:          model.FileTypeText,
		MimeType:          "text/plain",
		FileSize:          int64(len(text)),
		CurrentVersion:    1,
		Source:            model.SourceMeetingTranscript,
		SourceReferenceID: input.SourceReferenceID,
	}
	doc.SetExtracted(text)
	if err := s.docs.Create(doc); err != nil {
		return nil, err
	}

	key := storage.BlobKey(input.TeamID, doc.ID, doc.CurrentVersion, title+".txt")
	uploaded, err := s.blobs.Upload(ctx, key, []byte(text), "text/plain")
	if err != nil {
		if delErr := s.docs.Delete(doc.ID); delErr != nil {
			s.logger.Warn("remove transcript after failed upload",
				zap.Uint("document_id", doc.ID), zap.Error(delErr))
		}
		return nil, err
	}
	doc.StorageKey = uploaded.Key
	doc.FileURL = uploaded.URL
	if err := s.docs.Save(doc); err != nil {
		return nil, err
	}

	event := rabbitmq.IngestEvent{DocumentID: doc.ID, TeamID: doc.TeamID}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ingest event failed",
			zap.Uint("document_id", doc.ID), zap.Error(err))
	}
	return doc, nil
}

// projectSettings returns the project's settings, creating the default row
// (auto-save on) the first time a project is seen.
func (s *TranscriptService) projectSettings(teamID, projectID uint) (*model.ProjectSettings, error) {
	settings, err := s.settings.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}
	settings = &model.ProjectSettings{
		TeamID:              teamID,
		ProjectID:           projectID,
		AutoSaveTranscripts: true,
	}
	if err := s.settings.Create(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *TranscriptService) transcriptFolder(teamID, projectID uint, settings *model.ProjectSettings) (*model.Folder, error) {
	if settings.TranscriptFolderID != nil {
		folder, err := s.folders.GetByIDAndTeamID(*settings.TranscriptFolderID, teamID)
		if err != nil {
			return nil, err
		}
		if folder != nil {
			return folder, nil
		}
		// The recorded folder was deleted; fall through and recreate.
	}

	folder, err := s.folders.FindTranscriptFolder(teamID, projectID)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		kb, err := s.kbs.GetOrCreateByTeamID(teamID, "Knowledge Base")
		if err != nil {
			return nil, err
		}
		pid := projectID
		folder = &model.Folder{
			TeamID:          teamID,
			KnowledgeBaseID: kb.ID,
			Name:            "Meeting Transcripts",
			Type:            model.FolderTypeTranscripts,
			ProjectID:       &pid,
		}
		if err := s.folders.Create(folder); err != nil {
			return nil, err
		}
	}

	settings.TranscriptFolderID = &folder.ID
	settings.KnowledgeBaseID = folder.KnowledgeBaseID
	if err := s.settings.Save(settings); err != nil {
		s.logger.Warn("save transcript folder reference failed",
			zap.Uint("project_id", projectID), zap.Error(err))
	}
	return folder, nil
}
