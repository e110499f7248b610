package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-content-mediafilter/internal/config"
	"github.com/tendant/simple-content-mediafilter/internal/raster"
	"github.com/tendant/simple-content-mediafilter/internal/selector"
	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

func TestNewScaleImageValidates(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		key       string
	}{
		{"missing width", map[string]string{config.KeyImageMaxWidth: ""}, config.KeyImageMaxWidth},
		{"missing height", map[string]string{config.KeyImageMaxHeight: "0"}, config.KeyImageMaxHeight},
		{"brand without font size", map[string]string{config.KeyBrandHeight: "20"}, config.KeyBrandFontPoint},
		{"text output", map[string]string{config.KeyTargetFormat: "Text"}, config.KeyTargetFormat},
		{"webp output", map[string]string{config.KeyTargetFormat: "WebP"}, config.KeyTargetFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := loadSpec(t, pipeline.TaskScaleImage, scaleProps(tt.overrides))
			_, err := NewScaleImage(spec, nil, nil)
			var cerr *config.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.key, cerr.Key)
		})
	}
}

func TestNewScaleImageWithBrand(t *testing.T) {
	spec := loadSpec(t, pipeline.TaskScaleImage, scaleProps(map[string]string{
		config.KeyBrandHeight:    "20",
		config.KeyBrandText:      "Full Caption",
		config.KeyBrandAbbrev:    "FC",
		config.KeyBrandFont:      "no such font",
		config.KeyBrandFontPoint: "12",
	}))
	tr, err := NewScaleImage(spec, raster.HostCapabilities(), nil)
	require.NoError(t, err)

	assert.Equal(t, "ScaleImage", tr.Name())
	assert.True(t, tr.Supports(selector.Candidate{MediaType: "image/tiff"}))
	assert.True(t, tr.Supports(selector.Candidate{MediaType: "application/octet-stream", Extensions: []string{"png"}}))
	assert.False(t, tr.Supports(selector.Candidate{MediaType: "text/plain"}))
}
