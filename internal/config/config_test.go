package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-content-mediafilter/internal/formats"
	"github.com/tendant/simple-content-mediafilter/internal/policy"
)

const taskYAML = `
tasks:
  scaleimage:
    source.selector: ORIGINAL/*.tif
    source.minsize: 1024
    source.formats: [TIFF, JPEG]
    filter.force: false
    target.spec: THUMBNAIL/$src.thumb.$ext
    target.format: JPEG
    target.description: Thumbnail
    target.policy: bitstream
    image.maxwidth: 1200
    image.maxheight: 1200.5
    image.hqscale: true
    brand.height: 20
    brand.text: Full Caption
    brand.abbrev: FC
    brand.fontpoint: 12
  extracttext:
    source.selector: ORIGINAL
    target.spec: TEXT
    target.format: Text
    filter.parsers: " plain , html,"
`

func loadTasks(t *testing.T) MapSource {
	t.Helper()
	src, err := ParseYAML([]byte(taskYAML))
	require.NoError(t, err)
	return src
}

func TestLoadSpecScaleImage(t *testing.T) {
	spec, err := LoadSpec(ForTask(loadTasks(t), "scaleimage"), formats.Default())
	require.NoError(t, err)

	assert.Equal(t, "scaleimage", spec.TaskID)
	assert.Equal(t, "scaleimage", spec.Filter)
	assert.Equal(t, "ORIGINAL", spec.SourceContainer)
	assert.Equal(t, "*.tif", spec.SourceGlob)
	assert.True(t, spec.SourcePattern.MatchString("fig1.tif"))
	assert.False(t, spec.SourcePattern.MatchString("fig1.tiff"))
	assert.Equal(t, int64(1024), spec.SourceMinSize)
	assert.Equal(t, []string{"TIFF", "JPEG"}, spec.SourceFormats)
	assert.False(t, spec.Force)
	assert.Equal(t, "THUMBNAIL", spec.TargetContainer)
	assert.Equal(t, "$src.thumb.$ext", spec.TargetTemplate)
	assert.Equal(t, "image/jpeg", spec.TargetFormat.MediaType)
	assert.Equal(t, "Thumbnail", spec.TargetDescription)
	assert.Equal(t, policy.ModeBitstream, spec.Policy)

	assert.Equal(t, ImageParams{
		MaxWidth:       1200,
		MaxHeight:      1200.5,
		HQDownscale:    true,
		BrandHeight:    20,
		BrandText:      "Full Caption",
		BrandAbbrev:    "FC",
		BrandFontPoint: 12,
	}, spec.Image)
	assert.NoError(t, spec.RequireImage())

	crit := spec.Criteria()
	assert.Equal(t, spec.SourceFormats, crit.Formats)
	assert.Equal(t, int64(1024), crit.MinSize)
}

func TestLoadSpecExtractText(t *testing.T) {
	spec, err := LoadSpec(ForTask(loadTasks(t), "extracttext"), formats.Default())
	require.NoError(t, err)

	assert.Equal(t, "", spec.SourceGlob)
	assert.True(t, spec.SourcePattern.MatchString("anything at all.pdf"))
	assert.Empty(t, spec.SourceFormats)
	assert.Equal(t, "", spec.TargetTemplate)
	assert.Equal(t, []string{"plain", "html"}, spec.Providers)
	assert.Equal(t, policy.Mode(""), spec.Policy)

	var cfgErr *ConfigurationError
	err = spec.RequireImage()
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KeyImageMaxWidth, cfgErr.Key)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoadSpecErrors(t *testing.T) {
	base := map[string]string{
		KeySourceSelector: "ORIGINAL/*",
		KeyTargetSpec:     "THUMBNAIL",
		KeyTargetFormat:   "JPEG",
	}
	with := func(key, value string) MapSource {
		props := make(map[string]string, len(base)+1)
		for k, v := range base {
			props[k] = v
		}
		if value == "" {
			delete(props, key)
		} else {
			props[key] = value
		}
		return MapSource{"t": props}
	}

	tests := []struct {
		name  string
		src   MapSource
		key   string
		cause error
	}{
		{"missing selector", with(KeySourceSelector, ""), KeySourceSelector, ErrMissing},
		{"selector without container", with(KeySourceSelector, "/*.tif"), KeySourceSelector, ErrInvalid},
		{"missing target spec", with(KeyTargetSpec, ""), KeyTargetSpec, ErrMissing},
		{"missing target format", with(KeyTargetFormat, ""), KeyTargetFormat, ErrMissing},
		{"unknown target format", with(KeyTargetFormat, "jpeg"), KeyTargetFormat, ErrUnknownFormat},
		{"bad min size", with(KeySourceMinSize, "big"), KeySourceMinSize, ErrInvalid},
		{"negative min size", with(KeySourceMinSize, "-1"), KeySourceMinSize, ErrInvalid},
		{"bad force flag", with(KeyFilterForce, "sometimes"), KeyFilterForce, ErrInvalid},
		{"bad max width", with(KeyImageMaxWidth, "wide"), KeyImageMaxWidth, ErrInvalid},
		{"NaN max width", with(KeyImageMaxWidth, "NaN"), KeyImageMaxWidth, ErrInvalid},
		{"infinite max width", with(KeyImageMaxWidth, "Inf"), KeyImageMaxWidth, ErrInvalid},
		{"positive infinite max height", with(KeyImageMaxHeight, "+Inf"), KeyImageMaxHeight, ErrInvalid},
		{"negative infinite max height", with(KeyImageMaxHeight, "-inf"), KeyImageMaxHeight, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSpec(ForTask(tt.src, "t"), formats.Default())

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "t", cfgErr.Task)
			assert.Equal(t, tt.key, cfgErr.Key)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestLoadSpecFormatWithoutExtension(t *testing.T) {
	reg := formats.NewRegistry(formats.Format{ShortDescription: "Raw", MediaType: "application/octet-stream"})
	src := MapSource{"t": {KeySourceSelector: "A", KeyTargetSpec: "B", KeyTargetFormat: "Raw"}}

	_, err := LoadSpec(ForTask(src, "t"), reg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRequireImageBrandFont(t *testing.T) {
	spec := &DerivativeSpec{TaskID: "t", Image: ImageParams{MaxWidth: 10, MaxHeight: 10, BrandHeight: 20}}
	err := spec.RequireImage()

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KeyBrandFontPoint, cfgErr.Key)

	spec.Image.BrandHeight = 0
	assert.NoError(t, spec.RequireImage())
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"MEDIAFILTER_SCALEIMAGE_FILTER_FORCE":    "true",
		"MEDIAFILTER_SCALEIMAGE_IMAGE_MAXWIDTH": "400",
	}
	src := Layered{
		EnvSource{Prefix: EnvPrefix, Getenv: func(k string) string { return env[k] }},
		loadTasks(t),
	}

	spec, err := LoadSpec(ForTask(src, "scaleimage"), formats.Default())
	require.NoError(t, err)
	assert.True(t, spec.Force)
	assert.Equal(t, 400.0, spec.Image.MaxWidth)
	assert.Equal(t, 1200.5, spec.Image.MaxHeight)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "MEDIAFILTER_SCALE_IMAGE_BRAND_FONTPOINT", NewEnvSource().EnvKey("scale-image", "brand.fontpoint"))
}

func TestEnvSourceProcessEnvironment(t *testing.T) {
	t.Setenv("MEDIAFILTER_T_TARGET_POLICY", "open")

	v, ok := NewEnvSource().Lookup("t", KeyTargetPolicy)
	assert.True(t, ok)
	assert.Equal(t, "open", v)
}

func TestPropertiesDefaults(t *testing.T) {
	props := ForTask(MapSource{}, "none")

	assert.Equal(t, "d", props.String("k", "d"))
	n, err := props.Int("k", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	b, err := props.Bool("k", true)
	require.NoError(t, err)
	assert.True(t, b)
	assert.False(t, props.Has("k"))
}

func TestLoadFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taskYAML), 0o644))

	src, err := LoadFile(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scaleimage", "extracttext"}, src.Tasks())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("MEDIAFILTER_DOTENV_CHECK=loaded\n"), 0o644))
	t.Setenv("MEDIAFILTER_DOTENV_CHECK", "")
	require.NoError(t, os.Unsetenv("MEDIAFILTER_DOTENV_CHECK"))
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env"), envPath))
	assert.Equal(t, "loaded", os.Getenv("MEDIAFILTER_DOTENV_CHECK"))
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := configErr("scaleimage", KeyTargetFormat, ErrMissing)
	assert.Equal(t, "task scaleimage: property target.format: required property missing", err.Error())
	assert.True(t, errors.Is(err, ErrMissing))
}
