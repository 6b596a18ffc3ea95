package domain

import "strings"

// Video is an admitted review candidate tied to one catalog entry.
// Rows are append-only: the pipeline creates them and never updates them.
type Video struct {
	VideoID             string `gorm:"column:video_id;type:text;primaryKey" json:"video_id"`
	Title               string `gorm:"column:title;type:text" json:"title"`
	Uploader            string `gorm:"column:uploader;type:text" json:"uploader"`
	UploadDate          string `gorm:"column:upload_date;type:text" json:"upload_date"` // YYYYMMDD
	Views               int64  `gorm:"column:views" json:"views"`
	Duration            int    `gorm:"column:duration" json:"duration"` // seconds
	TranscriptAvailable bool   `gorm:"column:transcript_available" json:"transcript_available"`
	Languages           string `gorm:"column:languages;type:text" json:"languages"`
	LegoNumber          string `gorm:"column:lego_number;type:text;not null;index:idx_videos_lego_number" json:"lego_number"`
}

// TableName returns the database table name for Video.
func (Video) TableName() string {
	return "videos"
}

// LanguageList splits the stored comma-joined caption codes.
func (v Video) LanguageList() []string {
	if v.Languages == "" {
		return nil
	}
	parts := strings.Split(v.Languages, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
