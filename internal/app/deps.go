package app

import (
	"context"

	"teamkb/internal/model"
	"teamkb/internal/platform/rabbitmq"
	"teamkb/internal/repository"
)

// Repository and collaborator surfaces the services depend on. Declared here,
// on the consumer side, so tests can substitute fakes.

type DocumentRepo interface {
	Create(doc *model.Document) error
	GetByIDAndTeamID(id, teamID uint) (*model.Document, error)
	Save(doc *model.Document) error
	ListByTeamID(teamID uint, folderID *uint) ([]model.Document, error)
	ListByFolderID(folderID uint) ([]model.Document, error)
	ListByIDsAndTeamID(ids []uint, teamID uint) ([]model.Document, error)
	Archive(id, teamID uint) error
	Delete(id uint) error
	DeleteByFolderID(folderID uint) error
	KeywordSearch(teamID uint, query string, tokens []string, filter repository.KeywordFilter, limit int) ([]model.Document, error)
}

type FolderRepo interface {
	Create(folder *model.Folder) error
	GetByIDAndTeamID(id, teamID uint) (*model.Folder, error)
	ListByTeamID(teamID uint) ([]model.Folder, error)
	ListChildren(parentID uint) ([]model.Folder, error)
	FindTranscriptFolder(teamID, projectID uint) (*model.Folder, error)
	Save(folder *model.Folder) error
	Delete(id uint) error
}

type KnowledgeBaseRepo interface {
	GetByTeamID(teamID uint) (*model.KnowledgeBase, error)
	GetOrCreateByTeamID(teamID uint, name string) (*model.KnowledgeBase, error)
}

type VersionRepo interface {
	Create(version *model.DocumentVersion) error
	ListByDocumentID(documentID uint) ([]model.DocumentVersion, error)
}

type FavoriteRepo interface {
	Create(fav *model.Favorite) error
	Delete(userID, documentID uint) error
	Exists(userID, documentID uint) (bool, error)
	ListDocumentIDsByUser(userID, teamID uint) ([]uint, error)
}

type ProjectSettingsRepo interface {
	GetByProjectID(projectID uint) (*model.ProjectSettings, error)
	Create(settings *model.ProjectSettings) error
	Save(settings *model.ProjectSettings) error
}

// IngestNotifier publishes the fire-and-forget trigger that starts ingestion
// out-of-band.
type IngestNotifier interface {
	Publish(ctx context.Context, event rabbitmq.IngestEvent) error
}

// QueryEmbedder embeds a single search query.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
