// Package prescription loads workout files into timer prescriptions.
//
// Files are TOML, YAML or JSON, chosen by extension. Every file is checked
// against an embedded CUE schema before it is converted, so the timer only
// ever sees well formed prescriptions.
package prescription

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid is wrapped by every schema violation.
var ErrInvalid = errors.New("invalid workout file")

// Format is the encoding of a workout file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported workout file extension %q", filepath.Ext(path))
}

// Load reads, validates and converts a workout file.
func Load(path string) (*models.Workout, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to read workout file: %w", err)
	}

	workout, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if workout.Name == "" {
		workout.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return workout, nil
}

// Parse decodes and validates a workout in the given format.
func Parse(data []byte, format Format) (*models.Workout, error) {
	file, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	normalizeTypes(file.Exercises)
	if err := Validate(file); err != nil {
		return nil, err
	}
	return convert(file)
}

func decode(data []byte, format Format) (models.WorkoutFile, error) {
	var file models.WorkoutFile

	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return file, fmt.Errorf("Failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return file, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return file, fmt.Errorf("Failed to parse YAML: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return file, fmt.Errorf("Failed to parse JSON: %w", err)
		}
	default:
		return file, fmt.Errorf("unsupported workout format %q", format)
	}

	return file, nil
}

// Validate checks a decoded file against the #Workout schema.
func Validate(file models.WorkoutFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("Failed to encode workout for validation: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("Failed to compile workout schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename("workout.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	def := schema.LookupPath(cue.ParsePath("#Workout"))
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	return nil
}

// describe flattens CUE's error list into one line per problem.
func describe(err error) string {
	var lines []string
	for _, e := range cueerrors.Errors(err) {
		lines = append(lines, strings.TrimSpace(e.Error()))
	}
	if len(lines) == 0 {
		return err.Error()
	}
	return strings.Join(lines, "; ")
}

func normalizeTypes(defs []models.PrescriptionDef) {
	for i := range defs {
		defs[i].Type = strings.ToLower(strings.TrimSpace(defs[i].Type))
		normalizeTypes(defs[i].SubExercises)
	}
}

func convert(file models.WorkoutFile) (*models.Workout, error) {
	workout := &models.Workout{Name: NormalizeName(file.Name)}
	for i, def := range file.Exercises {
		p, err := toPrescription(def, "")
		if err != nil {
			return nil, fmt.Errorf("exercise %d: %w", i+1, err)
		}
		workout.Exercises = append(workout.Exercises, p)
	}
	return workout, nil
}

func toPrescription(def models.PrescriptionDef, fallback models.ExerciseType) (models.Prescription, error) {
	typ := fallback
	if def.Type != "" {
		t, err := models.ParseExerciseType(def.Type)
		if err != nil {
			return models.Prescription{}, err
		}
		typ = t
	}
	if typ == "" {
		return models.Prescription{}, fmt.Errorf("%w: %q has no type", ErrInvalid, def.Name)
	}

	p := models.Prescription{
		Name:            NormalizeName(def.Name),
		Type:            typ,
		Sets:            def.Sets,
		Reps:            def.Reps,
		Weight:          def.Weight,
		WeightUnit:      def.WeightUnit,
		WorkTimeSeconds: def.WorkTimeSeconds,
		RestTimeSeconds: def.RestTimeSeconds,
		Tempo:           def.Tempo,
	}
	if p.Sets == 0 {
		p.Sets = 1
	}
	if p.Tempo != nil {
		tempo := strings.ReplaceAll(*p.Tempo, " ", "")
		p.Tempo = &tempo
	}

	for _, sub := range def.SubExercises {
		s, err := toPrescription(sub, models.ExerciseBodyweight)
		if err != nil {
			return models.Prescription{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		p.SubExercises = append(p.SubExercises, s)
	}
	return p, nil
}

// NormalizeName returns s in NFC with surrounding and repeated whitespace
// removed, so "Supino  Reto" typed on different keyboards compares equal.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Find returns the exercise whose normalized name matches name, ignoring
// case.
func Find(w *models.Workout, name string) (models.Prescription, bool) {
	want := NormalizeName(name)
	for _, p := range w.Exercises {
		if strings.EqualFold(p.Name, want) {
			return p, true
		}
	}
	return models.Prescription{}, false
}
