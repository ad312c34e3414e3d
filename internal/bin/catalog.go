package bin

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CatalogError is a catalog validation failure with source position.
type CatalogError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CatalogError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCatalog reads asset specs from a CUE file of the form:
//
//	assets: {
//		intro: { length: 250, name: "Intro" }
//		black: { service: "color", resource: "0x000000ff", length: 1 }
//	}
//
// The struct label is the asset id. Specs are returned sorted by id.
func LoadCatalog(path string) ([]AssetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data, path)
}

// ParseCatalog parses catalog source; filename is used in error positions.
func ParseCatalog(src []byte, filename string) ([]AssetSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	assetsVal := v.LookupPath(cue.ParsePath("assets"))
	if !assetsVal.Exists() {
		return nil, &CatalogError{Field: "assets", Message: "required field missing", Pos: v.Pos()}
	}

	iter, err := assetsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	specs := []AssetSpec{}
	for iter.Next() {
		spec, err := parseAsset(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs, nil
}

func parseAsset(id string, v cue.Value) (AssetSpec, error) {
	spec := AssetSpec{ID: id}
	field := func(name string) string { return "assets." + id + "." + name }

	lengthVal := v.LookupPath(cue.ParsePath("length"))
	if !lengthVal.Exists() {
		return spec, &CatalogError{Field: field("length"), Message: "required field missing", Pos: v.Pos()}
	}
	length, err := lengthVal.Int64()
	if err != nil {
		return spec, &CatalogError{Field: field("length"), Message: "must be an integer", Pos: lengthVal.Pos()}
	}
	if length <= 0 {
		return spec, &CatalogError{Field: field("length"), Message: fmt.Sprintf("must be positive, got %d", length), Pos: lengthVal.Pos()}
	}
	spec.Length = int(length)

	for name, dst := range map[string]*string{
		"name":     &spec.Name,
		"service":  &spec.Service,
		"resource": &spec.Resource,
	} {
		s, err := optionalString(v, name)
		if err != nil {
			return spec, &CatalogError{Field: field(name), Message: err.Error(), Pos: v.LookupPath(cue.ParsePath(name)).Pos()}
		}
		*dst = s
	}

	if limitedVal := v.LookupPath(cue.ParsePath("limited")); limitedVal.Exists() {
		limited, err := limitedVal.Bool()
		if err != nil {
			return spec, &CatalogError{Field: field("limited"), Message: "must be a bool", Pos: limitedVal.Pos()}
		}
		spec.Limited = &limited
	}

	for name, dst := range map[string]**int{
		"audio_index": &spec.AudioIndex,
		"video_index": &spec.VideoIndex,
	} {
		idxVal := v.LookupPath(cue.ParsePath(name))
		if !idxVal.Exists() {
			continue
		}
		idx, err := idxVal.Int64()
		if err != nil {
			return spec, &CatalogError{Field: field(name), Message: "must be an integer", Pos: idxVal.Pos()}
		}
		n := int(idx)
		*dst = &n
	}

	return spec, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", fmt.Errorf("must be a string")
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CatalogError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
