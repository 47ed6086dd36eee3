package server

import (
	"ecosort/internal/domain"
	"ecosort/internal/engine"
)

// Request payloads

type CollectRequest struct {
	WasteID string `json:"waste_id" doc:"Id encoded in the item's QR code"`
}

type RedeemRequest struct {
	AwardID string `json:"award_id"`
	// UserID redeems on behalf of another account.
	UserID    string `json:"user_id,omitempty"`
	BarcodeID string `json:"barcode_id,omitempty"`
}

type AwardRequest struct {
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

type DevLoginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

type MeResponse struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Role   string   `json:"role"`
	Pages  []string `json:"accessible_pages"`
}

type DeleteResponse struct {
	Message string `json:"message"`
	engine.DeleteResult
}

type BulkDeleteResponse struct {
	Message string `json:"message"`
	engine.BulkDeleteResult
}

type RestoreResponse struct {
	Message string `json:"message"`
	engine.RestoreResult
}

type RankingResponse struct {
	Month string             `json:"month,omitempty"`
	Items []engine.RankEntry `json:"items"`
}

type HistoryResponse struct {
	Items []engine.HistoryEntry `json:"items"`
}

type EventsResponse struct {
	Items []domain.Event `json:"items"`
}

type RolesResponse struct {
	Items []domain.Role `json:"items"`
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
