// Package params parses A1111-style generation parameter blocks: the
// prompt lines, an optional "Negative prompt:" section, and a final
// line of comma-separated key: value pairs.
package params

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/otslabs/tsgallery/internal/models"
)

var (
	reParam     = regexp.MustCompile(`\s*([\w ]+):\s*("(?:\\"[^,]|\\"|\\|[^"])+"|[^,]*)(?:,|$)`)
	reImageSize = regexp.MustCompile(`^(\d+)x(\d+)$`)
	reSplit     = regexp.MustCompile(`[ ,]+`)
)

const negativePromptPrefix = "Negative prompt:"

// Parse extracts the prompt, the negative prompt and the key/value
// pairs from a generation parameters block. A last line with fewer
// than three recognizable pairs is treated as part of the prompt.
func Parse(text string) map[string]string {
	res := make(map[string]string)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return res
	}

	lines := strings.Split(trimmed, "\n")
	lastLine := lines[len(lines)-1]
	lines = lines[:len(lines)-1]
	if len(reParam.FindAllStringSubmatch(lastLine, -1)) < 3 {
		lines = append(lines, lastLine)
		lastLine = ""
	}

	var prompt, negative strings.Builder
	doneWithPrompt := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, negativePromptPrefix) {
			doneWithPrompt = true
			line = strings.TrimSpace(line[len(negativePromptPrefix):])
		}
		if doneWithPrompt {
			if negative.Len() > 0 {
				negative.WriteByte('\n')
			}
			negative.WriteString(line)
		} else {
			if prompt.Len() > 0 {
				prompt.WriteByte('\n')
			}
			prompt.WriteString(line)
		}
	}

	res[models.ColPrompt] = prompt.String()
	res[models.ColNegativePrompt] = negative.String()

	for _, m := range reParam.FindAllStringSubmatch(lastLine, -1) {
		k, v := m[1], m[2]
		if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
			v = unquote(v)
		}
		if size := reImageSize.FindStringSubmatch(v); size != nil {
			res[models.ColWidth] = size[1]
			res[models.ColHeight] = size[2]
		}
		res[k] = v
	}
	return res
}

// SplitPrompt tokenizes a prompt on spaces and commas. The tokens feed
// the keyword-indexed PromptSplits columns.
func SplitPrompt(s string) []string {
	var out []string
	for _, tok := range reSplit.Split(s, -1) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Apply parses rec.Parameters and fills the structured record fields.
// Parsed values win over pre-set ones; keys without a dedicated field
// are kept as strings in rec.Extra.
func Apply(rec *models.GenerationRecord) {
	for k, v := range Parse(rec.Parameters) {
		switch k {
		case models.ColPrompt:
			rec.Prompt = v
		case models.ColNegativePrompt:
			rec.NegativePrompt = v
		case models.ColModel:
			rec.Model = v
		case models.ColModelHash:
			rec.ModelHash = v
		case models.ColVersion:
			rec.Version = v
		case models.ColSize:
			rec.Size = v
		case models.ColSampler:
			rec.Sampler = v
		case models.ColWidth:
			rec.Width = parseInt(v)
		case models.ColHeight:
			rec.Height = parseInt(v)
		case models.ColSteps:
			rec.Steps = parseInt(v)
		case models.ColSeed:
			rec.Seed = parseInt(v)
		case models.ColCFGScale:
			rec.CFGScale = parseFloat(v)
		default:
			if v == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[k] = v
		}
	}

	if rec.Prompt != "" {
		rec.PromptSplits = SplitPrompt(rec.Prompt)
	}
	if rec.NegativePrompt != "" {
		rec.NegativePromptSplits = SplitPrompt(rec.NegativePrompt)
	}
}

func unquote(text string) string {
	if len(text) == 0 || text[0] != '"' || text[len(text)-1] != '"' {
		return text
	}
	var s string
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return text
	}
	return s
}

func parseInt(v string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	return n
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
