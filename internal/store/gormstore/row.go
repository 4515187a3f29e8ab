package gormstore

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/otslabs/tsgallery/internal/models"
)

// recordRow is the relational shape of a generation record. Prompt
// splits keep their JSON-array wire form; extra parameter keys live in
// a JSON map column.
type recordRow struct {
	ID                   string `gorm:"primaryKey;size:64"`
	Prompt               string `gorm:"index"`
	NegativePrompt       string
	PromptSplits         datatypes.JSON
	NegativePromptSplits datatypes.JSON
	Parameters           string
	Comments             string
	Model                string `gorm:"index"`
	ModelHash            string
	Version              string `gorm:"index"`
	Size                 string `gorm:"index"`
	Sampler              string `gorm:"index"`
	Width                int64
	Height               int64
	Steps                int64
	Seed                 int64
	CFGScale             float64 `gorm:"column:cfg_scale"`
	UsedTimeInSeconds    int64   `gorm:"column:used_time_in_seconds"`
	Interrupted          bool
	Skipped              bool
	IsTxt2Img            bool      `gorm:"column:is_txt2img;index"`
	IsImg2Img            bool      `gorm:"column:is_img2img;index"`
	JobStartTime         time.Time `gorm:"column:job_start_time;index"`
	ImagePath            string
	Extra                datatypes.JSONMap
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (recordRow) TableName() string {
	return "generation_records"
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}
}

func rowFromRecord(rec *models.GenerationRecord) *recordRow {
	row := &recordRow{
		ID:                rec.ID,
		Prompt:            rec.Prompt,
		NegativePrompt:    rec.NegativePrompt,
		Parameters:        rec.Parameters,
		Comments:          rec.Comments,
		Model:             rec.Model,
		ModelHash:         rec.ModelHash,
		Version:           rec.Version,
		Size:              rec.Size,
		Sampler:           rec.Sampler,
		Width:             rec.Width,
		Height:            rec.Height,
		Steps:             rec.Steps,
		Seed:              rec.Seed,
		CFGScale:          rec.CFGScale,
		UsedTimeInSeconds: rec.UsedTimeInSeconds,
		Interrupted:       rec.Interrupted,
		Skipped:           rec.Skipped,
		IsTxt2Img:         rec.IsTxt2Img,
		IsImg2Img:         rec.IsImg2Img,
		JobStartTime:      rec.JobStartTime,
		ImagePath:         rec.ImagePath,
	}

	if len(rec.PromptSplits) > 0 {
		row.PromptSplits = datatypes.JSON(models.EncodeSplits(rec.PromptSplits))
	}
	if len(rec.NegativePromptSplits) > 0 {
		row.NegativePromptSplits = datatypes.JSON(models.EncodeSplits(rec.NegativePromptSplits))
	}
	if len(rec.Extra) > 0 {
		row.Extra = datatypes.JSONMap(rec.Extra)
	}
	return row
}

func (r *recordRow) toRecord() *models.GenerationRecord {
	rec := &models.GenerationRecord{
		ID:                r.ID,
		Prompt:            r.Prompt,
		NegativePrompt:    r.NegativePrompt,
		Parameters:        r.Parameters,
		Comments:          r.Comments,
		Model:             r.Model,
		ModelHash:         r.ModelHash,
		Version:           r.Version,
		Size:              r.Size,
		Sampler:           r.Sampler,
		Width:             r.Width,
		Height:            r.Height,
		Steps:             r.Steps,
		Seed:              r.Seed,
		CFGScale:          r.CFGScale,
		UsedTimeInSeconds: r.UsedTimeInSeconds,
		Interrupted:       r.Interrupted,
		Skipped:           r.Skipped,
		IsTxt2Img:         r.IsTxt2Img,
		IsImg2Img:         r.IsImg2Img,
		JobStartTime:      r.JobStartTime,
		ImagePath:         r.ImagePath,
	}

	if len(r.PromptSplits) > 0 {
		rec.PromptSplits = models.DecodeSplits(string(r.PromptSplits))
	}
	if len(r.NegativePromptSplits) > 0 {
		rec.NegativePromptSplits = models.DecodeSplits(string(r.NegativePromptSplits))
	}
	if len(r.Extra) > 0 {
		rec.Extra = map[string]any(r.Extra)
	}
	return rec
}
