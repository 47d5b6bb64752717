package dto

type CreateCollectionRequest struct {
	Id              string `json:"id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	CollectionCount int    `json:"collection_count" validate:"gte=0"`
	ShortenedName   string `json:"shortenedName"`
	Description     string `json:"description"`
	Themes          string `json:"themes"`
	Notes           string `json:"notes"`
}

// UpdateCollectionRequest leaves collection-count untouched.
type UpdateCollectionRequest struct {
	Id            string
	Name          string `json:"name" validate:"required"`
	ShortenedName string `json:"shortenedName"`
	Description   string `json:"description"`
	Themes        string `json:"themes"`
	Notes         string `json:"notes"`
}

type CollectionResponse struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	CollectionCount int    `json:"collection-count"`
	ShortenedName   string `json:"shortened-name"`
	Description     string `json:"description"`
	Themes          string `json:"themes"`
	Notes           string `json:"notes"`
}

type UploadFilesResponse struct {
	Id    string   `json:"id"`
	Files []string `json:"files"`
}
