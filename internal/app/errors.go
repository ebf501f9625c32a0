package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrEmptyQuery       = errors.New("search query is empty")
	ErrFolderCycle      = errors.New("folder parent would create a cycle")
	ErrFolderCrossKB    = errors.New("folder parent belongs to another knowledge base")
	ErrAutoSaveDisabled = errors.New("transcript auto-save is disabled for this project")
)
