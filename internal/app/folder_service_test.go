package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"teamkb/internal/model"
	"teamkb/internal/vectorindex"
)

type fakeFolderRepo struct {
	folders map[uint]*model.Folder
	nextID  uint
	deleted []uint
}

func newFakeFolderRepo(folders ...*model.Folder) *fakeFolderRepo {
	r := &fakeFolderRepo{folders: map[uint]*model.Folder{}, nextID: 100}
	for _, f := range folders {
		r.folders[f.ID] = f
	}
	return r
}

func (r *fakeFolderRepo) Create(folder *model.Folder) error {
	r.nextID++
	folder.ID = r.nextID
	r.folders[folder.ID] = folder
	return nil
}

func (r *fakeFolderRepo) GetByIDAndTeamID(id, teamID uint) (*model.Folder, error) {
	folder, ok := r.folders[id]
	if !ok || folder.TeamID != teamID {
		return nil, nil
	}
	return folder, nil
}

func (r *fakeFolderRepo) ListByTeamID(teamID uint) ([]model.Folder, error) {
	var out []model.Folder
	for _, f := range r.folders {
		if f.TeamID == teamID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) ListChildren(parentID uint) ([]model.Folder, error) {
	var out []model.Folder
	for _, f := range r.folders {
		if f.ParentFolderID != nil && *f.ParentFolderID == parentID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) FindTranscriptFolder(teamID, projectID uint) (*model.Folder, error) {
	for _, f := range r.folders {
		if f.TeamID == teamID && f.Type == model.FolderTypeTranscripts &&
			f.ProjectID != nil && *f.ProjectID == projectID {
			return f, nil
		}
	}
	return nil, nil
}

func (r *fakeFolderRepo) Save(folder *model.Folder) error {
	r.folders[folder.ID] = folder
	return nil
}

func (r *fakeFolderRepo) Delete(id uint) error {
	r.deleted = append(r.deleted, id)
	delete(r.folders, id)
	return nil
}

type fakeKBRepo struct{}

func (r *fakeKBRepo) GetByTeamID(teamID uint) (*model.KnowledgeBase, error) {
	return &model.KnowledgeBase{ID: 1, TeamID: teamID}, nil
}

func (r *fakeKBRepo) GetOrCreateByTeamID(teamID uint, name string) (*model.KnowledgeBase, error) {
	return &model.KnowledgeBase{ID: 1, TeamID: teamID, Name: name}, nil
}

type fakeTreeDocRepo struct {
	fakeVersionDocRepo
	byFolder       map[uint][]model.Document
	deletedFolders []uint
}

func (r *fakeTreeDocRepo) ListByFolderID(folderID uint) ([]model.Document, error) {
	return r.byFolder[folderID], nil
}

func (r *fakeTreeDocRepo) DeleteByFolderID(folderID uint) error {
	r.deletedFolders = append(r.deletedFolders, folderID)
	delete(r.byFolder, folderID)
	return nil
}

type fakeCascadeIndex struct {
	deleted []uint
}

func (f *fakeCascadeIndex) Upsert(context.Context, string, []vectorindex.Record) error { return nil }
func (f *fakeCascadeIndex) Query(context.Context, string, []float32, int, *vectorindex.Filter) ([]vectorindex.Match, error) {
	return nil, nil
}
func (f *fakeCascadeIndex) DeleteDocument(_ context.Context, _ string, documentID uint) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func uintPtr(v uint) *uint { return &v }

func folderNode(id, teamID, kbID uint, parent *uint) *model.Folder {
	return &model.Folder{
		ID:              id,
		TeamID:          teamID,
		KnowledgeBaseID: kbID,
		Name:            "f",
		Type:            model.FolderTypeGeneral,
		ParentFolderID:  parent,
	}
}

func newTestFolderService(folders *fakeFolderRepo, docs *fakeTreeDocRepo) (*FolderService, *fakeObjectStore, *fakeCascadeIndex) {
	blobs := &fakeObjectStore{uploads: map[string][]byte{}}
	index := &fakeCascadeIndex{}
	svc := NewFolderService(folders, docs, &fakeVersionRepo{}, &fakeKBRepo{}, blobs, index, zap.NewNop())
	return svc, blobs, index
}

func TestCreateFolderUnknownParent(t *testing.T) {
	svc, _, _ := newTestFolderService(newFakeFolderRepo(), &fakeTreeDocRepo{})
	_, err := svc.CreateFolder(CreateFolderInput{TeamID: 4, Name: "docs", ParentFolderID: uintPtr(42)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestCreateFolderCrossKnowledgeBaseParent(t *testing.T) {
	foreign := folderNode(5, 4, 2, nil) // kb 2, service resolves kb 1
	svc, _, _ := newTestFolderService(newFakeFolderRepo(foreign), &fakeTreeDocRepo{})
	_, err := svc.CreateFolder(CreateFolderInput{TeamID: 4, Name: "docs", ParentFolderID: uintPtr(5)})
	if !errors.Is(err, ErrFolderCrossKB) {
		t.Errorf("want ErrFolderCrossKB, got %v", err)
	}
}

func TestMoveFolderSelfParent(t *testing.T) {
	a := folderNode(1, 4, 1, nil)
	svc, _, _ := newTestFolderService(newFakeFolderRepo(a), &fakeTreeDocRepo{})
	_, err := svc.MoveFolder(4, 1, uintPtr(1))
	if !errors.Is(err, ErrFolderCycle) {
		t.Errorf("want ErrFolderCycle, got %v", err)
	}
}

func TestMoveFolderDeepCycle(t *testing.T) {
	a := folderNode(1, 4, 1, nil)
	b := folderNode(2, 4, 1, uintPtr(1))
	c := folderNode(3, 4, 1, uintPtr(2))
	svc, _, _ := newTestFolderService(newFakeFolderRepo(a, b, c), &fakeTreeDocRepo{})

	// c's ancestor chain contains a, so a cannot be re-parented under c.
	_, err := svc.MoveFolder(4, 1, uintPtr(3))
	if !errors.Is(err, ErrFolderCycle) {
		t.Errorf("want ErrFolderCycle, got %v", err)
	}
}

func TestMoveFolderValid(t *testing.T) {
	a := folderNode(1, 4, 1, nil)
	b := folderNode(2, 4, 1, nil)
	svc, _, _ := newTestFolderService(newFakeFolderRepo(a, b), &fakeTreeDocRepo{})

	moved, err := svc.MoveFolder(4, 2, uintPtr(1))
	if err != nil {
		t.Fatalf("MoveFolder: %v", err)
	}
	if moved.ParentFolderID == nil || *moved.ParentFolderID != 1 {
		t.Errorf("parent = %v", moved.ParentFolderID)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	root := folderNode(1, 4, 1, nil)
	child := folderNode(2, 4, 1, uintPtr(1))
	folders := newFakeFolderRepo(root, child)

	docs := &fakeTreeDocRepo{byFolder: map[uint][]model.Document{
		1: {{ID: 11, TeamID: 4, FolderID: 1, StorageKey: "teams/4/documents/11/v1/a.txt"}},
		2: {{ID: 22, TeamID: 4, FolderID: 2, StorageKey: "teams/4/documents/22/v1/b.txt"}},
	}}
	svc, blobs, index := newTestFolderService(folders, docs)
	blobs.uploads["teams/4/documents/11/v1/a.txt"] = []byte("a")
	blobs.uploads["teams/4/documents/22/v1/b.txt"] = []byte("b")

	if err := svc.DeleteFolder(context.Background(), 4, 1); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	if len(folders.deleted) != 2 {
		t.Errorf("deleted folders = %v, want both", folders.deleted)
	}
	if len(docs.deletedFolders) != 2 {
		t.Errorf("doc cascades = %v", docs.deletedFolders)
	}
	if len(blobs.uploads) != 0 {
		t.Errorf("blobs left behind: %v", blobs.uploads)
	}
	if len(index.deleted) != 2 {
		t.Errorf("vector deletes = %v, want docs 11 and 22", index.deleted)
	}
}

func TestDeleteFolderUnknown(t *testing.T) {
	svc, _, _ := newTestFolderService(newFakeFolderRepo(), &fakeTreeDocRepo{})
	if err := svc.DeleteFolder(context.Background(), 4, 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
