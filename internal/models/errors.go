package models

import (
	"errors"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrJobExists   = errors.New("job already exists")
	ErrValidation  = errors.New("validation error")
	ErrConfig      = errors.New("missing configuration")
	ErrEmptyUpload = errors.New("uploaded file is empty")
)
