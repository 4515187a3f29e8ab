package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// TimeLayout is the storage format for JobStartTime columns.
const TimeLayout = "2006-01-02 15:04:05"

// PrimaryKeyColumn is the single primary key of the record table.
const PrimaryKeyColumn = "uuid"

// Attribute column names. Several carry spaces because the upstream
// generation parameters use them verbatim as keys.
const (
	ColPrompt               = "Prompt"
	ColNegativePrompt       = "Negative prompt"
	ColPromptSplits         = "PromptSplits"
	ColNegativePromptSplits = "NegativePromptSplits"
	ColParameters           = "Parameters"
	ColComments             = "Comments"
	ColModel                = "Model"
	ColModelHash            = "Model hash"
	ColVersion              = "Version"
	ColSize                 = "Size"
	ColSampler              = "Sampler"
	ColWidth                = "Width"
	ColHeight               = "Height"
	ColSteps                = "Steps"
	ColSeed                 = "Seed"
	ColCFGScale             = "CFG scale"
	ColUsedTimeInSeconds    = "UsedTimeInSeconds"
	ColInterrupted          = "Interrupted"
	ColSkipped              = "Skipped"
	ColIsTxt2Img            = "IsTxt2Img"
	ColIsImg2Img            = "IsImg2Img"
	ColJobStartTime         = "JobStartTime"
	ColImagePath            = "ImagePath"
)

// GenerationRecord is one persisted image generation with its full
// parameter set. Extra holds parsed parameter keys that have no
// dedicated field; they are stored as additional attribute columns.
type GenerationRecord struct {
	ID                   string         `json:"id"`
	Prompt               string         `json:"prompt"`
	NegativePrompt       string         `json:"negative_prompt,omitempty"`
	PromptSplits         []string       `json:"prompt_splits,omitempty"`
	NegativePromptSplits []string       `json:"negative_prompt_splits,omitempty"`
	Parameters           string         `json:"parameters,omitempty"`
	Comments             string         `json:"comments,omitempty"`
	Model                string         `json:"model,omitempty"`
	ModelHash            string         `json:"model_hash,omitempty"`
	Version              string         `json:"version,omitempty"`
	Size                 string         `json:"size,omitempty"`
	Sampler              string         `json:"sampler,omitempty"`
	Width                int64          `json:"width,omitempty"`
	Height               int64          `json:"height,omitempty"`
	Steps                int64          `json:"steps,omitempty"`
	Seed                 int64          `json:"seed,omitempty"`
	CFGScale             float64        `json:"cfg_scale,omitempty"`
	UsedTimeInSeconds    int64          `json:"used_time_in_seconds,omitempty"`
	Interrupted          bool           `json:"interrupted"`
	Skipped              bool           `json:"skipped"`
	IsTxt2Img            bool           `json:"is_txt2img"`
	IsImg2Img            bool           `json:"is_img2img"`
	JobStartTime         time.Time      `json:"job_start_time"`
	ImagePath            string         `json:"image_path,omitempty"`
	Extra                map[string]any `json:"extra,omitempty"`
}

// Columns flattens the record into attribute columns keyed by their
// storage names. Only string, bool, integer and finite float values
// survive; everything else is dropped. Zero-valued optional numerics
// are treated as absent.
func (r *GenerationRecord) Columns() map[string]interface{} {
	cols := make(map[string]interface{})

	for k, v := range r.Extra {
		if val, ok := normalizeColumnValue(v); ok {
			cols[k] = val
		}
	}

	putString := func(name, val string) {
		if val != "" {
			cols[name] = val
		}
	}
	putInt := func(name string, val int64) {
		if val != 0 {
			cols[name] = val
		}
	}

	putString(ColPrompt, r.Prompt)
	putString(ColNegativePrompt, r.NegativePrompt)
	putString(ColParameters, r.Parameters)
	putString(ColComments, r.Comments)
	putString(ColModel, r.Model)
	putString(ColModelHash, r.ModelHash)
	putString(ColVersion, r.Version)
	putString(ColSize, r.Size)
	putString(ColSampler, r.Sampler)
	putString(ColImagePath, r.ImagePath)

	putInt(ColWidth, r.Width)
	putInt(ColHeight, r.Height)
	putInt(ColSteps, r.Steps)
	putInt(ColSeed, r.Seed)

	if r.CFGScale != 0 && !math.IsNaN(r.CFGScale) && !math.IsInf(r.CFGScale, 0) {
		cols[ColCFGScale] = r.CFGScale
	}

	cols[ColUsedTimeInSeconds] = r.UsedTimeInSeconds
	cols[ColInterrupted] = r.Interrupted
	cols[ColSkipped] = r.Skipped
	cols[ColIsTxt2Img] = r.IsTxt2Img
	cols[ColIsImg2Img] = r.IsImg2Img

	if len(r.PromptSplits) > 0 {
		cols[ColPromptSplits] = EncodeSplits(r.PromptSplits)
	}
	if len(r.NegativePromptSplits) > 0 {
		cols[ColNegativePromptSplits] = EncodeSplits(r.NegativePromptSplits)
	}
	if !r.JobStartTime.IsZero() {
		cols[ColJobStartTime] = r.JobStartTime.Format(TimeLayout)
	}

	return cols
}

// RecordFromColumns rebuilds a record from stored attribute columns.
// Unknown columns are preserved in Extra.
func RecordFromColumns(id string, cols map[string]interface{}) *GenerationRecord {
	r := &GenerationRecord{ID: id, Extra: make(map[string]any)}

	for name, raw := range cols {
		switch name {
		case ColPrompt:
			r.Prompt = asString(raw)
		case ColNegativePrompt:
			r.NegativePrompt = asString(raw)
		case ColParameters:
			r.Parameters = asString(raw)
		case ColComments:
			r.Comments = asString(raw)
		case ColModel:
			r.Model = asString(raw)
		case ColModelHash:
			r.ModelHash = asString(raw)
		case ColVersion:
			r.Version = asString(raw)
		case ColSize:
			r.Size = asString(raw)
		case ColSampler:
			r.Sampler = asString(raw)
		case ColImagePath:
			r.ImagePath = asString(raw)
		case ColWidth:
			r.Width = asInt64(raw)
		case ColHeight:
			r.Height = asInt64(raw)
		case ColSteps:
			r.Steps = asInt64(raw)
		case ColSeed:
			r.Seed = asInt64(raw)
		case ColCFGScale:
			r.CFGScale = asFloat64(raw)
		case ColUsedTimeInSeconds:
			r.UsedTimeInSeconds = asInt64(raw)
		case ColInterrupted:
			r.Interrupted = asBool(raw)
		case ColSkipped:
			r.Skipped = asBool(raw)
		case ColIsTxt2Img:
			r.IsTxt2Img = asBool(raw)
		case ColIsImg2Img:
			r.IsImg2Img = asBool(raw)
		case ColPromptSplits:
			r.PromptSplits = DecodeSplits(raw)
		case ColNegativePromptSplits:
			r.NegativePromptSplits = DecodeSplits(raw)
		case ColJobStartTime:
			if t, err := time.ParseInLocation(TimeLayout, asString(raw), time.Local); err == nil {
				r.JobStartTime = t
			}
		default:
			r.Extra[name] = raw
		}
	}

	if len(r.Extra) == 0 {
		r.Extra = nil
	}
	return r
}

// EncodeSplits renders prompt tokens as a JSON array string, the wire
// form used for the PromptSplits columns.
func EncodeSplits(splits []string) string {
	b, err := json.Marshal(splits)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeSplits parses a PromptSplits column back into tokens.
func DecodeSplits(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case string:
		var splits []string
		if err := json.Unmarshal([]byte(v), &splits); err != nil {
			return nil
		}
		return splits
	default:
		return nil
	}
}

func normalizeColumnValue(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case float32:
		return normalizeColumnValue(float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, false
		}
		return val, true
	default:
		return nil, false
	}
}

func asString(raw interface{}) string {
	s, _ := raw.(string)
	return s
}

func asInt64(raw interface{}) int64 {
	switch v := raw.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func asFloat64(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func asBool(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}
