package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"teamkb/internal/model"
)

type fakeSettingsRepo struct {
	settings map[uint]*model.ProjectSettings
	created  int
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: map[uint]*model.ProjectSettings{}}
}

func (r *fakeSettingsRepo) GetByProjectID(projectID uint) (*model.ProjectSettings, error) {
	return r.settings[projectID], nil
}

func (r *fakeSettingsRepo) Create(s *model.ProjectSettings) error {
	r.created++
	s.ID = uint(len(r.settings) + 1)
	r.settings[s.ProjectID] = s
	return nil
}

func (r *fakeSettingsRepo) Save(s *model.ProjectSettings) error {
	r.settings[s.ProjectID] = s
	return nil
}

type fakeTranscriptDocRepo struct {
	fakeVersionDocRepo
	created []*model.Document
}

func (r *fakeTranscriptDocRepo) Create(doc *model.Document) error {
	doc.ID = uint(len(r.created) + 1)
	r.created = append(r.created, doc)
	return nil
}

func newTestTranscriptService() (*TranscriptService, *fakeTranscriptDocRepo, *fakeFolderRepo, *fakeSettingsRepo, *fakeNotifier) {
	docs := &fakeTranscriptDocRepo{}
	folders := newFakeFolderRepo()
	settings := newFakeSettingsRepo()
	notifier := &fakeNotifier{}
	svc := NewTranscriptService(docs, folders, &fakeKBRepo{}, settings,
		&fakeObjectStore{}, notifier, zap.NewNop())
	return svc, docs, folders, settings, notifier
}

func TestSaveTranscriptCreatesFolderAndSettings(t *testing.T) {
	svc, docs, folders, settings, notifier := newTestTranscriptService()

	doc, err := svc.SaveTranscript(context.Background(), SaveTranscriptInput{
		TeamID:            6,
		ProjectID:         77,
		Title:             "Weekly sync",
		Text:              "decisions were made",
		SourceReferenceID: "meeting-123",
	})
	if err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}

	if settings.created != 1 {
		t.Errorf("settings created %d times, want lazy default row", settings.created)
	}
	stored := settings.settings[77]
	if stored == nil || stored.TranscriptFolderID == nil {
		t.Fatal("transcript folder reference not recorded on settings")
	}

	folder, _ := folders.GetByIDAndTeamID(*stored.TranscriptFolderID, 6)
	if folder == nil || folder.Type != model.FolderTypeTranscripts {
		t.Fatalf("transcript folder = %+v", folder)
	}
	if folder.ProjectID == nil || *folder.ProjectID != 77 {
		t.Errorf("folder project = %v", folder.ProjectID)
	}

	if doc.Source != model.SourceMeetingTranscript {
		t.Errorf("source = %s", doc.Source)
	}
	if doc.FileType != model.FileTypeText {
		t.Errorf("file type = %s", doc.FileType)
	}
	if doc.Content == nil || *doc.Content != "decisions were made" {
		t.Error("transcript text must be stored inline")
	}
	if doc.SourceReferenceID != "meeting-123" {
		t.Errorf("source reference = %q", doc.SourceReferenceID)
	}
	if len(notifier.events) != 1 {
		t.Errorf("ingest events = %d, want 1", len(notifier.events))
	}
	if len(docs.created) != 1 {
		t.Errorf("docs created = %d", len(docs.created))
	}
}

func TestSaveTranscriptReusesFolder(t *testing.T) {
	svc, _, folders, _, _ := newTestTranscriptService()

	first, err := svc.SaveTranscript(context.Background(), SaveTranscriptInput{
		TeamID: 6, ProjectID: 77, Title: "one", Text: "a",
	})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := svc.SaveTranscript(context.Background(), SaveTranscriptInput{
		TeamID: 6, ProjectID: 77, Title: "two", Text: "b",
	})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first.FolderID != second.FolderID {
		t.Errorf("folder ids differ: %d vs %d", first.FolderID, second.FolderID)
	}

	count := 0
	for _, f := range folders.folders {
		if f.Type == model.FolderTypeTranscripts {
			count++
		}
	}
	if count != 1 {
		t.Errorf("transcript folders = %d, want 1", count)
	}
}

func TestSaveTranscriptAutoSaveDisabled(t *testing.T) {
	svc, _, _, settings, _ := newTestTranscriptService()
	settings.settings[77] = &model.ProjectSettings{ProjectID: 77, AutoSaveTranscripts: false}

	_, err := svc.SaveTranscript(context.Background(), SaveTranscriptInput{
		TeamID: 6, ProjectID: 77, Title: "sync", Text: "text",
	})
	if !errors.Is(err, ErrAutoSaveDisabled) {
		t.Errorf("want ErrAutoSaveDisabled, got %v", err)
	}
}

func TestSaveTranscriptBlobFailureRemovesDocument(t *testing.T) {
	docs := &fakeTranscriptDocRepo{}
	blobs := &fakeObjectStore{uploadErr: errors.New("gridfs down")}
	svc := NewTranscriptService(docs, newFakeFolderRepo(), &fakeKBRepo{},
		newFakeSettingsRepo(), blobs, &fakeNotifier{}, zap.NewNop())

	_, err := svc.SaveTranscript(context.Background(), SaveTranscriptInput{
		TeamID: 6, ProjectID: 77, Title: "sync", Text: "text",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(docs.created) != 1 {
		t.Fatalf("docs created = %d", len(docs.created))
	}
	if len(docs.deleted) != 1 || docs.deleted[0] != docs.created[0].ID {
		t.Errorf("deleted = %v, want the orphan row rolled back", docs.deleted)
	}
}

func TestSaveTranscriptValidation(t *testing.T) {
	svc, _, _, _, _ := newTestTranscriptService()
	cases := []SaveTranscriptInput{
		{TeamID: 0, ProjectID: 1, Title: "t", Text: "x"},
		{TeamID: 6, ProjectID: 0, Title: "t", Text: "x"},
		{TeamID: 6, ProjectID: 1, Title: " ", Text: "x"},
		{TeamID: 6, ProjectID: 1, Title: "t", Text: "  "},
	}
	for i, input := range cases {
		if _, err := svc.SaveTranscript(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: want ErrInvalidInput, got %v", i, err)
		}
	}
}
