package hcl

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/structure"
)

// HCLSettings represents the HCL run settings structure
type HCLSettings struct {
	Channels  []HCLChannel   `hcl:"channel,block"`
	Roles     map[string]int `hcl:"roles,optional"`
	Structure []int          `hcl:"structure,optional"`
}

// HCLChannel is a channel block, labelled with the channel name
type HCLChannel struct {
	Name            string           `hcl:"name,label"`
	ID              int              `hcl:"id"`
	Description     *string          `hcl:"description,optional"`
	Column          *string          `hcl:"column,optional"`
	Kind            *string          `hcl:"kind,optional"`
	Model           *string          `hcl:"model,optional"`
	MinSpacingMs    *int64           `hcl:"min_spacing_ms,optional"`
	ResamplingError float64          `hcl:"resampling_error"`
	Coefficients    *HCLCoefficients `hcl:"coefficients,block"`
}

// HCLCoefficients holds the growth-rate model constants of a channel
type HCLCoefficients struct {
	KFlow            *float64 `hcl:"k_flow,optional"`
	EFlow            *float64 `hcl:"e_flow,optional"`
	KDes             *float64 `hcl:"k_des,optional"`
	EDes             *float64 `hcl:"e_des,optional"`
	DesorptionWeight *float64 `hcl:"desorption_weight,optional"`
	Intercept        *float64 `hcl:"intercept,optional"`
	Slope            *float64 `hcl:"slope,optional"`
}

// evalContext exposes helper functions to settings files:
//
//	duration_ms("1.5s") = 1500
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"duration_ms": function.New(&function.Spec{
				Params: []function.Parameter{
					{
						Name: "duration",
						Type: cty.String,
					},
				},
				Type: function.StaticReturnType(cty.Number),
				Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
					d, err := time.ParseDuration(args[0].AsString())
					if err != nil {
						return cty.UnknownVal(cty.Number), err
					}
					return cty.NumberIntVal(d.Milliseconds()), nil
				},
			}),
		},
	}
}

// ParseSettings parses HCL content into validated run settings
func ParseSettings(hclContent string) (*structure.Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(hclContent), "settings.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decodeSettings(file)
}

// decodeSettings decodes a parsed file and converts it to run settings
func decodeSettings(file *hcl.File) (*structure.Settings, error) {
	var hclSettings HCLSettings
	diags := gohcl.DecodeBody(file.Body, evalContext(), &hclSettings)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}

	settings := convertSettings(&hclSettings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func convertSettings(hs *HCLSettings) *structure.Settings {
	settings := &structure.Settings{
		Channels:          make([]growth.Config, 0, len(hs.Channels)),
		Roles:             make(structure.Roles, len(hs.Roles)),
		StructureChannels: hs.Structure,
	}
	for role, id := range hs.Roles {
		settings.Roles[structure.Role(role)] = id
	}

	for _, hc := range hs.Channels {
		cfg := growth.Config{
			ID:              hc.ID,
			Name:            hc.Name,
			ResamplingError: hc.ResamplingError,
		}
		if hc.Description != nil {
			cfg.Description = *hc.Description
		}
		if hc.Column != nil {
			cfg.Column = *hc.Column
		}
		if hc.Kind != nil {
			cfg.Kind = growth.Kind(*hc.Kind)
		}
		if hc.Model != nil {
			cfg.Model = growth.Model(*hc.Model)
		}
		if hc.MinSpacingMs != nil {
			cfg.MinSpacingMs = *hc.MinSpacingMs
		}
		if c := hc.Coefficients; c != nil {
			cfg.Coefficients = growth.Coefficients{
				KFlow:            deref(c.KFlow),
				EFlow:            deref(c.EFlow),
				KDes:             deref(c.KDes),
				EDes:             deref(c.EDes),
				DesorptionWeight: c.DesorptionWeight,
				Intercept:        deref(c.Intercept),
				Slope:            deref(c.Slope),
			}
		}
		settings.Channels = append(settings.Channels, cfg)
	}
	return settings
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// IsHCL attempts to detect if the given content is in HCL format
func IsHCL(content []byte) bool {
	_, diags := hclsyntax.ParseConfig(content, "", hcl.Pos{Line: 1, Column: 1})
	return !diags.HasErrors()
}
