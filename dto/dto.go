package dto

import "voice-recorder/entities"

type PlayRequest struct {
	Location        string `json:"location" binding:"required"`
	DurationSeconds int64  `json:"durationSeconds" binding:"gte=0"`
}

type PlaybackState struct {
	Playing   bool                `json:"playing"`
	Recording *entities.Recording `json:"recording,omitempty"`
}

type RecordingsResponse struct {
	Recordings []entities.Recording `json:"recordings"`
}
