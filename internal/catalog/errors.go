package catalog

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidCategory  = errors.New("invalid category name")
	ErrReservedCategory = errors.New("category is reserved")
	ErrCategoryExists   = errors.New("category already exists")
)
