package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes a JSON string or number into its text form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("version must be a string or a number")
	}
	*s = FlexString(num.String())
	return nil
}

// CreateKeywordListRequest carries include and exclude as comma-separated
// strings, the way the add form posts them.
type CreateKeywordListRequest struct {
	Id        string     `json:"id" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Version   FlexString `json:"version"`
	DateAdded string     `json:"date_added"`
	Included  string     `json:"included"`
	Excluded  string     `json:"excluded"`
}

// UpdateKeywordListRequest carries include and exclude as arrays.
type UpdateKeywordListRequest struct {
	Id        string
	Name      string     `json:"name" validate:"required"`
	Version   FlexString `json:"version"`
	DateAdded string     `json:"date_added"`
	Included  []string   `json:"included"`
	Excluded  []string   `json:"excluded"`
}

type KeywordListResponse struct {
	Id        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	DateAdded string   `json:"date-added"`
	Include   []string `json:"include"`
	Exclude   []string `json:"exclude"`
}
