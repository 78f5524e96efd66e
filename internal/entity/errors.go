package entity

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrInvalidStage      = errors.New("invalid stage")
	ErrInvalidSubstage   = errors.New("invalid substage")
	ErrInvalidMedium     = errors.New("invalid contact medium")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidTransition = errors.New("stage transition not allowed")
)
