package dto

type MetadataFilesResponse struct {
	Files []string `json:"files"`
}
