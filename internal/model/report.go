package model

import "time"

// Report is one incident submission. Records are never updated or deleted.
type Report struct {
	ID            string    `json:"id" bson:"_id" firestore:"id"`
	Location      string    `json:"location" bson:"location" firestore:"location"`
	Latitude      string    `json:"latitude" bson:"latitude" firestore:"latitude"`
	Longitude     string    `json:"longitude" bson:"longitude" firestore:"longitude"`
	SeverityLevel string    `json:"severity_level" bson:"severity_level" firestore:"severity_level"`
	SeverityType  string    `json:"severity_type" bson:"severity_type" firestore:"severity_type"`
	RoadBlock     string    `json:"road_block" bson:"road_block" firestore:"road_block"`
	ImageURL      string    `json:"image_url,omitempty" bson:"image_url,omitempty" firestore:"image_url,omitempty"`
	Notes         string    `json:"notes,omitempty" bson:"notes,omitempty" firestore:"notes,omitempty"`
	Landmark      string    `json:"landmark,omitempty" bson:"landmark,omitempty" firestore:"landmark,omitempty"`
	Timestamp     time.Time `json:"timestamp" bson:"timestamp" firestore:"timestamp"`
	ReporterUID   string    `json:"reporter_uid" bson:"reporter_uid" firestore:"reporter_uid"`
}

// HasCoordinates reports whether both latitude and longitude were given.
func (r Report) HasCoordinates() bool {
	return r.Latitude != "" && r.Longitude != ""
}

// ReportForm is the submitted form, bound by gin from multipart or
// urlencoded bodies. Required-field checks happen in service.ValidateReport
// so the form can be re-rendered with what the user typed.
type ReportForm struct {
	Location      string `form:"location"`
	Latitude      string `form:"latitude"`
	Longitude     string `form:"longitude"`
	SeverityLevel string `form:"severity_level"`
	SeverityType  string `form:"severity_type"`
	RoadBlock     string `form:"road_block"`
	ImageURL      string `form:"image_url"`
	Notes         string `form:"notes"`
	Landmark      string `form:"landmark"`
}
