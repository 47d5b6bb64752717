package mapper

import (
	"io"
	"mime/multipart"

	"winnow-be/internal/entity"
)

// FromMultipart exposes uploaded parts as entity.UploadFile values. Files
// are opened lazily by the store.
func FromMultipart(headers []*multipart.FileHeader) []entity.UploadFile {
	files := make([]entity.UploadFile, 0, len(headers))
	for _, h := range headers {
		header := h
		files = append(files, entity.UploadFile{
			Filename: header.Filename,
			Open: func() (io.ReadCloser, error) {
				return header.Open()
			},
		})
	}
	return files
}
