package structure

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

// MaterialType is the chemistry regime active at an instant
type MaterialType string

const (
	TypeInAlGaN        MaterialType = "InAlGaN"
	TypeMetal          MaterialType = "metal"
	TypeSiN            MaterialType = "SiN"
	TypeAmmonia        MaterialType = "NH3"
	TypeNitrogenPlasma MaterialType = "N-plasma"
	TypeEmpty          MaterialType = "empty"
)

// Dopant species
const (
	SiliconDopant   = "Si"
	MagnesiumDopant = "Mg"
)

// formulaThreshold is the smallest mole fraction printed in a formula
const formulaThreshold = 0.01

// Dopant is a doping species with its concentration, given as the growth
// rate of its source
type Dopant struct {
	Species       string  `json:"species"`
	Concentration float64 `json:"concentration"`
}

// Material is the chemistry snapshot at Timestamp. Presence of sources and
// the substrate temperature bracket are decided at Reference.
type Material struct {
	Timestamp            int64        `json:"timestamp"`
	Reference            int64        `json:"reference"`
	Type                 MaterialType `json:"type"`
	XIn                  float64      `json:"x_in"`
	YAl                  float64      `json:"y_al"`
	GrowthRate           float64      `json:"growth_rate"`
	MetalRich            bool         `json:"metal_rich"`
	GrowthRateUndefined  bool         `json:"growth_rate_undefined,omitempty"`
	Dopants              []Dopant     `json:"dopants,omitempty"`
	SubstrateTemperature float64      `json:"substrate_temperature"`
	HeaterPower          *float64     `json:"heater_power,omitempty"`
	HeaterTemperature    *float64     `json:"heater_temperature,omitempty"`
}

// Formula renders the material, e.g. In0.2Al0.3Ga0.5N. Regimes other than
// InAlGaN render as their type name.
func (m Material) Formula() string {
	if m.Type != TypeInAlGaN {
		return string(m.Type)
	}
	var b strings.Builder
	for _, part := range []struct {
		element  string
		fraction float64
	}{
		{"In", m.XIn},
		{"Al", m.YAl},
		{"Ga", 1 - m.XIn - m.YAl},
	} {
		if part.fraction <= formulaThreshold {
			continue
		}
		b.WriteString(part.element)
		if f := math.Round(part.fraction*100) / 100; f < 1 {
			b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	b.WriteString("N")
	return b.String()
}

// MaterialAt resolves the material at t. ref decides which sources are
// present and which heater ramp is used for the substrate temperature;
// fluxes are evaluated at t.
func (r *Run) MaterialAt(t, ref int64) Material {
	m := Material{
		Timestamp:            t,
		Reference:            ref,
		SubstrateTemperature: r.SubstrateTemperature(t, ref),
	}
	if v, ok := r.Role(HeaterPower).ValueAt(t); ok {
		m.HeaterPower = &v
	}
	if v, ok := r.Role(HeaterTemperature).ValueAt(t); ok {
		m.HeaterTemperature = &v
	}

	present := func(role Role) bool {
		return r.Role(role).Present(ref)
	}
	metal := present(Indium) || present(Aluminium) || present(Gallium)
	nitrogen := present(Ammonia) || present(NitrogenPlasma)
	silicon := present(Silicon) || present(Silane)
	tsub := m.SubstrateTemperature

	switch {
	case metal && nitrogen:
		r.resolveInAlGaN(&m)
	case metal:
		m.Type = TypeMetal
		m.GrowthRate = r.Role(Indium).Rate(t, tsub) + r.Role(Aluminium).Rate(t, tsub) + r.Role(Gallium).Rate(t, tsub)
	case silicon && nitrogen:
		// no growth-rate model for silicon nitride yet
		m.Type = TypeSiN
		m.GrowthRateUndefined = true
	case present(Ammonia):
		m.Type = TypeAmmonia
		m.GrowthRate = r.Role(Ammonia).Rate(t, tsub)
	case present(NitrogenPlasma):
		m.Type = TypeNitrogenPlasma
		m.GrowthRate = r.Role(NitrogenPlasma).Rate(t, tsub)
	default:
		m.Type = TypeEmpty
	}

	for _, d := range []struct {
		role    Role
		species string
	}{
		{Silicon, SiliconDopant},
		{Silane, SiliconDopant},
		{Magnesium, MagnesiumDopant},
	} {
		if present(d.role) {
			m.Dopants = append(m.Dopants, Dopant{Species: d.species, Concentration: r.Role(d.role).Rate(t, tsub)})
		}
	}
	return m
}

// resolveInAlGaN fills in the nitride regime. Ammonia takes priority over
// plasma: with ammonia flowing the metal desorption is suppressed.
func (r *Run) resolveInAlGaN(m *Material) {
	m.Type = TypeInAlGaN
	t, tsub := m.Timestamp, m.SubstrateTemperature

	weight := 1.0
	vN := r.Role(Ammonia).Rate(t, tsub)
	if vN != 0 {
		weight = 0
	} else {
		vN = r.Role(NitrogenPlasma).Rate(t, tsub)
	}
	vIn := r.Role(Indium).RateWithWeight(t, tsub, weight)
	vAl := r.Role(Aluminium).RateWithWeight(t, tsub, weight)
	vGa := r.Role(Gallium).RateWithWeight(t, tsub, weight)

	m.GrowthRate, m.XIn, m.YAl, m.MetalRich = Stoichiometry(vIn, vAl, vGa, vN)
}

// Stoichiometry splits the group-III fluxes against the nitrogen flux. When
// the metals are in short supply (strictly less than nitrogen) growth is
// nitrogen rich and limited by the metals, otherwise it is metal rich and
// limited by nitrogen. A zero growth rate leaves both fractions at zero.
func Stoichiometry(vIn, vAl, vGa, vN float64) (rate, xIn, yAl float64, metalRich bool) {
	if sum := vIn + vAl + vGa; sum < vN {
		rate = sum
		if rate != 0 {
			xIn = vIn / rate
			yAl = vAl / rate
		}
	} else {
		metalRich = true
		rate = vN
		if rate != 0 {
			xIn = math.Max(0, (rate-vAl-vGa)/rate)
			yAl = math.Min(1, vAl/rate)
		}
	}
	xIn, yAl = clampFractions(xIn, yAl)
	return rate, xIn, yAl, metalRich
}

// clampFractions keeps both fractions in [0, 1] with xIn+yAl <= 1; the
// aluminium fraction wins when they overflow.
func clampFractions(xIn, yAl float64) (float64, float64) {
	yAl = math.Min(1, math.Max(0, yAl))
	xIn = math.Min(1-yAl, math.Max(0, xIn))
	return xIn, yAl
}

// SubstrateTemperature estimates the substrate temperature at t from the
// pyrometer. The heater power nodes bracketing ref select the fit window: a
// constant power gives the mean pyrometer reading over the window, a ramp
// gives the least-squares line evaluated at t. Refs outside the heater power
// span use its first or last pair of nodes. It returns 0 when either channel
// has no data.
func (r *Run) SubstrateTemperature(t, ref int64) float64 {
	power := r.Role(HeaterPower)
	pyro := r.Role(Pyrometer)
	if power.Empty() || pyro.Empty() {
		return 0
	}

	from, to := bracket(power.Curve.Nodes, ref)
	readings := pyro.Curve.Nodes.Between(from.Timestamp, to.Timestamp)
	if len(readings) == 0 {
		readings = endpoints(pyro.Curve.Nodes, from.Timestamp, to.Timestamp)
	}

	if from.Value == to.Value {
		v, _ := timeline.ConstantFit(readings, from.Timestamp, to.Timestamp)
		return v
	}
	line, _ := timeline.LinearFit(readings, from.Timestamp, to.Timestamp)
	return line.At(t)
}

// bracket returns the consecutive nodes around ref, clamped to the first or
// last pair. A single node brackets itself.
func bracket(nodes timeline.Series, ref int64) (timeline.Sample, timeline.Sample) {
	if len(nodes) == 1 {
		return nodes[0], nodes[0]
	}
	i := sort.Search(len(nodes), func(i int) bool { return nodes[i].Timestamp > ref })
	i = min(max(i, 1), len(nodes)-1)
	return nodes[i-1], nodes[i]
}

// endpoints interpolates the series at both ends of a window holding no node
func endpoints(s timeline.Series, from, to int64) timeline.Series {
	v0, _ := s.Interpolate(from)
	if from == to {
		return timeline.Series{{Timestamp: from, Value: v0}}
	}
	v1, _ := s.Interpolate(to)
	return timeline.Series{{Timestamp: from, Value: v0}, {Timestamp: to, Value: v1}}
}
