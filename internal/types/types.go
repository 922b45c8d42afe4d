package types

import (
	"github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/schema"
)

// PredictRequest is the body of POST /api/v1/predict
type PredictRequest struct {
	Features map[string]float64 `json:"features" binding:"required"`
}

// SchemaResponse describes the feature vector the loaded model expects
type SchemaResponse struct {
	Features []schema.Spec      `json:"features"`
	Target   string             `json:"target"`
	Defaults map[string]float64 `json:"defaults"`
	Model    string             `json:"model"`
	Engine   string             `json:"engine"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status      string      `json:"status"`
	Timestamp   string      `json:"timestamp"`
	Version     string      `json:"version"`
	Uptime      string      `json:"uptime"`
	Services    interface{} `json:"services"`
	Cache       interface{} `json:"cache,omitempty"`
	Compression interface{} `json:"compression,omitempty"`
}
