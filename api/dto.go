/*
dto.go - Request/response data structures

All request and response shapes of the HTTP API live here, separate
from handler logic. Monetary values serialize through brp.Money's JSON
representation; hours are decimal strings.
*/
package api

import (
	"github.com/leftra123/remupro-v3/history"
	"github.com/leftra123/remupro-v3/tabular"
)

// =============================================================================
// PROCESS
// =============================================================================

// DatasetDTO is one uploaded sheet in a JSON process request.
type DatasetDTO struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func (d DatasetDTO) dataset(kind string) tabular.Dataset {
	return tabular.Dataset{Kind: kind, Headers: d.Headers, Rows: d.Rows}
}

// ProcessRequest is the JSON body of POST /api/process. The roster, SEP
// and PIE/Normal sheets are required; REM is advisory and optional.
type ProcessRequest struct {
	Month     string      `json:"month"`
	Notes     string      `json:"notes,omitempty"`
	Roster    DatasetDTO  `json:"roster"`
	SEP       DatasetDTO  `json:"sep"`
	PIENormal DatasetDTO  `json:"pie_normal"`
	REM       *DatasetDTO `json:"rem,omitempty"`
}

// =============================================================================
// PREFERENCES
// =============================================================================

// SetPreferenceRequest is the body of PUT /api/preferences/columns/{key}.
type SetPreferenceRequest struct {
	Status history.PreferenceStatus `json:"status"`
}

// =============================================================================
// GENERIC RESPONSES
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MonthsResponse lists the stored months, newest first.
type MonthsResponse struct {
	Months []string `json:"months"`
}

// StatusResponse acknowledges a mutation.
type StatusResponse struct {
	Status string `json:"status"`
	Month  string `json:"month,omitempty"`
}
