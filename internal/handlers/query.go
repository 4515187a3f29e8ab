package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"

	"github.com/otslabs/tsgallery/internal/models"
	"github.com/otslabs/tsgallery/internal/store"
)

const fallbackPageSize = 20

// PageLimits bounds client-controlled page sizes.
type PageLimits struct {
	Default int
	Max     int
}

func (l PageLimits) clamp(size int) int {
	if size <= 0 {
		if l.Default > 0 {
			return l.Default
		}
		return fallbackPageSize
	}
	if l.Max > 0 && size > l.Max {
		return l.Max
	}
	return size
}

// filterFromQuery assembles a search filter from list-endpoint query
// parameters. Malformed values fail the request instead of silently
// matching everything.
func filterFromQuery(c *gin.Context) (store.Filter, error) {
	filter := store.Filter{
		Prompt:         strings.TrimSpace(c.Query("prompt")),
		NegativePrompt: strings.TrimSpace(c.Query("negative_prompt")),
		Models:         csvQuery(c, "models"),
		Sizes:          csvQuery(c, "sizes"),
		Samplers:       csvQuery(c, "samplers"),
		Versions:       csvQuery(c, "versions"),
	}

	var err error
	if filter.Since, err = timeQuery(c, "since"); err != nil {
		return store.Filter{}, err
	}
	if filter.Until, err = timeQuery(c, "until"); err != nil {
		return store.Filter{}, err
	}

	if filter.Txt2Img, err = boolQuery(c, "txt2img"); err != nil {
		return store.Filter{}, err
	}
	if filter.Img2Img, err = boolQuery(c, "img2img"); err != nil {
		return store.Filter{}, err
	}
	if filter.Interrupted, err = boolQuery(c, "interrupted"); err != nil {
		return store.Filter{}, err
	}
	if filter.Skipped, err = boolQuery(c, "skipped"); err != nil {
		return store.Filter{}, err
	}

	if filter.Width, err = intRangeQuery(c, "width"); err != nil {
		return store.Filter{}, err
	}
	if filter.Height, err = intRangeQuery(c, "height"); err != nil {
		return store.Filter{}, err
	}
	if filter.Steps, err = intRangeQuery(c, "steps"); err != nil {
		return store.Filter{}, err
	}
	if filter.UsedTime, err = intRangeQuery(c, "used_time"); err != nil {
		return store.Filter{}, err
	}
	if filter.CFGScale, err = floatRangeQuery(c, "cfg_scale"); err != nil {
		return store.Filter{}, err
	}

	return filter, nil
}

func csvQuery(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := parseTimeValue(raw)
	if err != nil {
		return nil, appErrors.NewBadRequest("invalid " + key + ": expected RFC3339 or " + models.TimeLayout)
	}
	return &t, nil
}

// parseTimeValue accepts RFC3339 or the record time layout the host
// pipeline emits. The record layout carries no zone and is read as
// local wall-clock time, the same way stored JobStartTime values are.
func parseTimeValue(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(models.TimeLayout, raw, time.Local)
}

func boolQuery(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.NewBadRequest("invalid " + key + ": expected true or false")
	}
	return &v, nil
}

func intRangeQuery(c *gin.Context, key string) (*store.IntRange, error) {
	r := &store.IntRange{}
	if raw := strings.TrimSpace(c.Query(key + "_min")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, appErrors.NewBadRequest("invalid " + key + "_min: expected an integer")
		}
		r.Min = &v
	}
	if raw := strings.TrimSpace(c.Query(key + "_max")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, appErrors.NewBadRequest("invalid " + key + "_max: expected an integer")
		}
		r.Max = &v
	}
	if r.Empty() {
		return nil, nil
	}
	return r, nil
}

func floatRangeQuery(c *gin.Context, key string) (*store.FloatRange, error) {
	r := &store.FloatRange{}
	if raw := strings.TrimSpace(c.Query(key + "_min")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, appErrors.NewBadRequest("invalid " + key + "_min: expected a number")
		}
		r.Min = &v
	}
	if raw := strings.TrimSpace(c.Query(key + "_max")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, appErrors.NewBadRequest("invalid " + key + "_max: expected a number")
		}
		r.Max = &v
	}
	if r.Empty() {
		return nil, nil
	}
	return r, nil
}
