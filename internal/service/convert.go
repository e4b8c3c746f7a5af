package service

import (
	"stopped-vehicle-detector-go/internal/model"
	"stopped-vehicle-detector-go/pkg/models"
)

func toRecord(det models.Detection, sourceImage string) *model.DetectionRecord {
	rec := &model.DetectionRecord{
		ID:           det.ID,
		Latitude:     det.Latitude,
		Longitude:    det.Longitude,
		Confidence:   det.Confidence,
		VehicleClass: string(det.VehicleClass),
		Timestamp:    det.Timestamp,
		SourceImage:  sourceImage,
		Altitude:     det.Altitude,
		Heading:      det.Heading,
		Speed:        det.Speed,
	}
	if det.ImageCoords != nil {
		x, y := det.ImageCoords.X, det.ImageCoords.Y
		rec.ImageX = &x
		rec.ImageY = &y
	}
	return rec
}

func toDetection(rec *model.DetectionRecord) models.Detection {
	det := models.Detection{
		ID:           rec.ID,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		Confidence:   rec.Confidence,
		VehicleClass: models.VehicleClass(rec.VehicleClass),
		Timestamp:    rec.Timestamp,
		Altitude:     rec.Altitude,
		Heading:      rec.Heading,
		Speed:        rec.Speed,
	}
	if rec.ImageX != nil && rec.ImageY != nil {
		det.ImageCoords = &models.ImageCoords{X: *rec.ImageX, Y: *rec.ImageY}
	}
	return det
}

func toDetections(records []*model.DetectionRecord) []models.Detection {
	out := make([]models.Detection, len(records))
	for i, rec := range records {
		out[i] = toDetection(rec)
	}
	return out
}
