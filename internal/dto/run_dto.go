package dto

import "encoding/json"

type UpdateKeywordContextsRequest struct {
	// RunId defaults to the staged run.
	RunId             string          `json:"runId"`
	IndividualRunName string          `json:"individualRunName" validate:"required"`
	Contexts          json.RawMessage `json:"contexts"`
}

// Staging requests wrap their payload in "data", matching the client.

type SetRunNameRequest struct {
	Data struct {
		Name string `json:"name" validate:"required"`
		Time string `json:"time" validate:"required"`
	} `json:"data"`
}

type ChooseIdsRequest struct {
	Data []string `json:"data"`
}

type ChooseSelectionRequest struct {
	Data json.RawMessage `json:"data"`
}

type ViewReportRequest struct {
	Data string `json:"data" validate:"required"`
}

type LaunchRunRequest struct {
	// Data is the interviewee selection; omitted keeps the staged one.
	Data json.RawMessage `json:"data"`
}
