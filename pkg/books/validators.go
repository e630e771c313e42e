package books

import "mime/multipart"

type ListBooksQuery struct {
	Page int `query:"page" json:"page,omitempty" default:"1" validate:"min=1"`
}

// CreateBookPayload is bound from the multipart book form. The cover file, if
// any, arrives under the "cover" key in FormFiles.
type CreateBookPayload struct {
	Title       string `form:"title" json:"title" mod:"trim" validate:"required,max=128"`
	Description string `form:"description" json:"description" mod:"trim" validate:"required"`
	Year        int    `form:"year" json:"year" validate:"required,min=1000,max=2100"`
	Publisher   string `form:"publisher" json:"publisher" mod:"trim" validate:"required,max=128"`
	Author      string `form:"author" json:"author" mod:"trim" validate:"required,max=128"`
	Pages       int    `form:"pages" json:"pages" validate:"required,min=1"`
	GenreIDs    []int  `form:"genre_ids" json:"genre_ids" validate:"required,min=1,dive,min=1"`

	FormFiles map[string]*multipart.FileHeader `form:"-" json:"-" validate:"-"`
}

// UpdateBookPayload updates book fields. Covers are fixed at creation, so no
// file handling here. A present genre_ids replaces the association set
// wholesale.
type UpdateBookPayload struct {
	Title       *string `form:"title" json:"title,omitempty" mod:"trim" validate:"omitempty,max=128"`
	Description *string `form:"description" json:"description,omitempty" mod:"trim" validate:"omitempty"`
	Year        *int    `form:"year" json:"year,omitempty" validate:"omitempty,min=1000,max=2100"`
	Publisher   *string `form:"publisher" json:"publisher,omitempty" mod:"trim" validate:"omitempty,max=128"`
	Author      *string `form:"author" json:"author,omitempty" mod:"trim" validate:"omitempty,max=128"`
	Pages       *int    `form:"pages" json:"pages,omitempty" validate:"omitempty,min=1"`
	GenreIDs    []int   `form:"genre_ids" json:"genre_ids,omitempty" validate:"omitempty,min=1,dive,min=1"`
}
