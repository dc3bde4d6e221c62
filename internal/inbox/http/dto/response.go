package dto

import (
	"encoding/json"
	"time"

	driveDomain "github.com/allisson/peertransfer/internal/drive/domain"
	inboxDomain "github.com/allisson/peertransfer/internal/inbox/domain"
)

// InboxItemResponse is an inbox item as listed on the owner API. The wrapped
// transfer key header is not exposed.
type InboxItemResponse struct {
	ID              string                          `json:"id"`
	Sender          string                          `json:"sender"`
	AppID           string                          `json:"appId"`
	File            driveDomain.InternalDriveFileID `json:"file"`
	TrackerID       string                          `json:"trackerId"`
	InstructionType inboxDomain.InstructionType     `json:"instructionType"`
	Metadata        json.RawMessage                 `json:"metadata,omitempty"`
	Priority        int                             `json:"priority"`
	CreatedAt       time.Time                       `json:"createdAt"`
}

// MapInboxItemsToResponse maps items to their listing form.
func MapInboxItemsToResponse(items []*inboxDomain.InboxItem) []InboxItemResponse {
	data := make([]InboxItemResponse, 0, len(items))
	for _, item := range items {
		data = append(data, InboxItemResponse{
			ID:              item.ID.String(),
			Sender:          item.Sender,
			AppID:           item.AppID,
			File:            item.File,
			TrackerID:       item.TrackerID.String(),
			InstructionType: item.InstructionType,
			Metadata:        item.Metadata,
			Priority:        item.Priority,
			CreatedAt:       item.CreatedAt,
		})
	}
	return data
}

// ListInboxItemsResponse is the body of GET /v1/transit/inbox/items.
type ListInboxItemsResponse struct {
	Data []InboxItemResponse `json:"data"`
}
